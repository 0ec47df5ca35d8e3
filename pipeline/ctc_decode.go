package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"text2phenotype.com/ctcdecode/decoder"
	"text2phenotype.com/ctcdecode/logger"
	"text2phenotype.com/ctcdecode/utils"
)

// CTCDecode decodes the emission batch of each request with the decoder its
// configuration names.
func CTCDecode(registry *Registry) Pipeline {
	ctcLogger := logger.NewLogger("CTC decode pipeline")
	ctcLogger.Info().Strs("configurations", registry.Names()).Msg("Starting CTC decode pipeline")

	return func(request Request) <-chan string {
		responseChan := make(chan string, 1)
		pplnLog := ctcLogger.With().Str("tid", request.Tid).Str("config_name", request.Config).Logger()
		pplnLog.Info().Msg("Started CTC decode pipeline")

		go func() {
			defer close(responseChan)
			response, err := decodeRequest(registry, request)
			if err != nil {
				pplnLog.Err(err).Caller().Msg("CTC decode pipeline failed")
				return
			}
			pplnLog.Info().Msg("Finished CTC decode pipeline")
			responseChan <- response
		}()

		return responseChan
	}
}

func decodeRequest(registry *Registry, request Request) (response string, err error) {
	defer utils.RecoverWithError(&err)
	d, err := registry.Get(request.Config)
	if err != nil {
		return "", err
	}
	var batch decoder.Batch
	if err = json.Unmarshal(request.Payload, &batch); err != nil {
		return "", fmt.Errorf("%w: %s", decoder.ErrInvalidInput, err)
	}
	result, err := d.Decode(context.Background(), request.Tid, batch)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

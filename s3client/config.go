package s3client

import (
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"strings"
)

const maxRetries = 4

type EnvironmentConfig struct {
	BucketName  string `envconfig:"MDL_COMN_STORAGE_CONTAINER_NAME" required:"true"`
	T2PEnv      string `envconfig:"T2P_ENV" required:"true"`
	Region      string `envconfig:"MDL_COMN_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"MDL_COMN_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"MDL_COMN_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"MDL_COMN_AWS_ACCESS_KEY" default:""`
}

func readEnvironment() (EnvironmentConfig, error) {
	var config EnvironmentConfig
	err := envconfig.Process("", &config)
	return config, err
}

func (env EnvironmentConfig) instanceConfig() *aws.Config {
	return aws.NewConfig().
		WithRegion(env.Region).
		WithMaxRetries(maxRetries).
		WithLogLevel(aws.LogDebug)
}

// credentialsConfig uses static env credentials; a local endpoint is only
// honoured in the dev environment.
func (env EnvironmentConfig) credentialsConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(env.AccessKeyID, env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, fmt.Errorf("static credentials: %w", err)
	}
	cfg := env.instanceConfig().WithCredentials(creds)
	if env.T2PEnv == "dev" && len(env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

// sdkLoggerAdapter adapts zerolog to aws.Logger.
type sdkLoggerAdapter struct {
	ctcLogger zerolog.Logger
}

func newSDKLogger(ctcLogger zerolog.Logger) *sdkLoggerAdapter {
	return &sdkLoggerAdapter{ctcLogger}
}

func (l *sdkLoggerAdapter) Log(v ...interface{}) {
	l.ctcLogger.Debug().Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

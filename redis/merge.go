package redis

import (
	"encoding/json"
	jsonpatch "github.com/evanphx/json-patch"
)

func decode(raw []byte, doc interface{}) error {
	return json.Unmarshal(raw, doc)
}

func mergePatch(raw []byte, patch []byte) ([]byte, error) {
	return jsonpatch.MergePatch(raw, patch)
}

// applyUpdate decodes raw into doc, runs update and merges the difference
// between the decoded and the updated doc back into raw.
func applyUpdate(raw []byte, doc interface{}, update func()) (merged []byte, patch []byte, err error) {
	if err = decode(raw, doc); err != nil {
		return nil, nil, err
	}
	before, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	update()
	after, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	patch, err = jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, nil, err
	}
	merged, err = mergePatch(raw, patch)
	if err != nil {
		return nil, nil, err
	}
	return merged, patch, nil
}

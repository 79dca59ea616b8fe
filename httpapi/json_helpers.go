package httpapi

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/mitchellh/hashstructure"
)

// StableJSONHash generates a stable ETag component from a
// JSON-marshalable value.
func StableJSONHash(v interface{}) (string, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	hash := xxhash.Sum64(jsonData)
	return "\"" + strconv.FormatUint(hash, 10) + "\"", nil
}

// structHash adapts a value to the ETagger interface using a
// structural hash, order-independent over map keys. Only suitable for
// payloads whose fields are all exported (a time.Time would hash as a
// constant).
type structHash struct{ v interface{} }

func (h structHash) ETag() string {
	sum, err := hashstructure.Hash(h.v, nil)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(sum, 10)
}

package utils

import (
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"io"
	"strconv"
)

func IntFromString(s string, defaultValue int) int {
	atoi, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return atoi
}

// UintFromString parses a positive id, returning 0 when s is not one.
func UintFromString(s string) uint {
	value, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}

func ToJson(value any) []byte {
	jsonResp, err := json.Marshal(value)
	if err != nil {
		log.Errorf("Error happened in JSON marshal. Err: %s", err)
	}
	return jsonResp
}

// FromJson decodes at most limit bytes of r into value.
func FromJson(r io.Reader, limit int64, value any) error {
	decoder := json.NewDecoder(io.LimitReader(r, limit))
	decoder.DisallowUnknownFields()
	return decoder.Decode(value)
}

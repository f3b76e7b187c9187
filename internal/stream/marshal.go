package stream

import (
	"encoding/json"

	"ruleoracle/internal/queue"
)

type wireStatus struct {
	State   queue.State     `json:"state"`
	Pct     int             `json:"pct"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func marshalStatus(s queue.Status) ([]byte, error) {
	return json.Marshal(wireStatus{State: s.State, Pct: s.Pct, Msg: s.Message, Result: s.Result, Error: s.Error})
}

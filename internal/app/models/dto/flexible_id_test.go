package dto

import (
	"encoding/json"
	"testing"
)

func TestFlexibleIDAcceptsNumbersAndStrings(t *testing.T) {
	cases := []struct {
		body string
		want int64 // 0 means none
	}{
		{`{"title":"t","assigned_to":7}`, 7},
		{`{"title":"t","assigned_to":"7"}`, 7},
		{`{"title":"t","assigned_to":" 12 "}`, 12},
		{`{"title":"t","assigned_to":null}`, 0},
		{`{"title":"t","assigned_to":""}`, 0},
		{`{"title":"t","assigned_to":0}`, 0},
		{`{"title":"t"}`, 0},
	}
	for _, tc := range cases {
		var req CreateExperimentRequest
		if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
			t.Fatalf("%s: %v", tc.body, err)
		}
		got := req.AssignedTo.Ptr()
		switch {
		case tc.want == 0 && got != nil:
			t.Errorf("%s: got %d, want none", tc.body, *got)
		case tc.want != 0 && (got == nil || *got != tc.want):
			t.Errorf("%s: got %v, want %d", tc.body, got, tc.want)
		}
	}
}

func TestFlexibleIDRejectsGarbage(t *testing.T) {
	for _, body := range []string{`{"assigned_to":"abc"}`, `{"assigned_to":-3}`, `{"assigned_to":1.5}`, `{"assigned_to":true}`} {
		var req AssignExperimentRequest
		if err := json.Unmarshal([]byte(body), &req); err == nil {
			t.Errorf("%s: expected an error", body)
		}
	}
}

func TestFlexibleIDMarshal(t *testing.T) {
	raw, err := json.Marshal(AssignExperimentRequest{AssignedTo: NewFlexibleID(4)})
	if err != nil || string(raw) != `{"assigned_to":4}` {
		t.Fatalf("marshal = %s, %v", raw, err)
	}
	raw, _ = json.Marshal(AssignExperimentRequest{})
	if string(raw) != `{"assigned_to":null}` {
		t.Fatalf("marshal none = %s", raw)
	}
}

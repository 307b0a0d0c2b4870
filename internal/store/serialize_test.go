package store

import (
	"encoding/json"
	"reflect"
	"testing"

	"kastom/internal/canvas"
	"kastom/internal/domain"
)

func TestSerializeRoundTrip(t *testing.T) {
	s := New()
	w1 := s.Create(testTemplate(), canvas.DefaultView(), 1000, 800)
	_ = s.Create(testTemplate(), canvas.DefaultView(), 1000, 800)
	if _, err := s.UpdatePayload(w1.ID, json.RawMessage(`{"cells":[["a","b"]]}`)); err != nil {
		t.Fatalf("UpdatePayload: %v", err)
	}
	blob, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(blob)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	want := s.List()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestDeserializeUpgradesMissingAppearance(t *testing.T) {
	blob := []byte(`[
	  {"id":"legacy-1","title":"Old","code":{"markup":"<p></p>","style":"","script":""},
	   "position":{"x":20,"y":40},"size":{"width":320,"height":320},
	   "stackOrder":1,"createdAt":1700000000000}
	]`)
	got, err := Deserialize(blob)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}
	if !got[0].Appearance.Equal(domain.DefaultAppearance()) {
		t.Fatalf("missing appearance not upgraded: %+v", got[0].Appearance)
	}
}

func TestDeserializeIgnoresUnknownFields(t *testing.T) {
	blob := []byte(`[
	  {"id":"x","title":"T","code":{"markup":"","style":"","script":""},
	   "position":{"x":0,"y":0},"size":{"width":320,"height":320},
	   "stackOrder":1,"createdAt":0,
	   "appearance":{"backgroundColor":"#18181b","fontSize":14,"cornerRadius":8},
	   "futureField":{"nested":true}}
	]`)
	got, err := Deserialize(blob)
	if err != nil {
		t.Fatalf("unknown fields must not fail the load: %v", err)
	}
	if got[0].Appearance.FontSize != 14 {
		t.Fatalf("present appearance overwritten: %+v", got[0].Appearance)
	}
}

func TestDeserializeCorruptBlob(t *testing.T) {
	if _, err := Deserialize([]byte(`{"not":"an array"`)); err == nil {
		t.Fatalf("corrupt blob must surface an error for the caller to recover from")
	}
}

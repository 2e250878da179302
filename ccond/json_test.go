package ccond

import "testing"

func TestToJSON_Shape(t *testing.T) {
	f := NewPrefixSha256([]byte("abc"), 100, NewPreimageSha256(nil))
	js, err := ToJSON(f)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	want := `{"type":"prefix-sha-256","prefix":"YWJj","maxMessageLength":100,"subfulfillment":{"type":"preimage-sha-256","preimage":""}}`
	if string(js) != want {
		t.Fatalf("json mismatch:\n got %s\nwant %s", js, want)
	}
}

func TestFromJSON_Threshold(t *testing.T) {
	js := `{"type":"threshold-sha-256","threshold":1,` +
		`"subfulfillments":[{"type":"preimage-sha-256","preimage":""}],` +
		`"subconditions":["` + emptyPreimageCondition + `"]}`
	f, err := FromJSON([]byte(js))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	uri, err := FulfillmentURI(f)
	if err != nil {
		t.Fatalf("FulfillmentURI: %v", err)
	}
	if uri != "cf:1:4:AQIDAQEAAAAkAAAg47DEQpj8HBSa-_TImW-5JCeuQeRkm5NMpJWZG3hSuFUA" {
		t.Fatalf("unexpected URI %s", uri)
	}
}

func TestFromJSON_Errors(t *testing.T) {
	cases := []struct {
		name   string
		js     string
		kind   Kind
		ruleID string
	}{
		{"not json", `{`, KindParse, "CC-JSON-010"},
		{"trailing", `{"type":"preimage-sha-256","preimage":""} {}`, KindParse, "CC-JSON-011"},
		{"unknown type", `{"type":"md5"}`, KindUnsupportedType, "CC-TYPE-003"},
		{"missing preimage", `{"type":"preimage-sha-256"}`, KindMissingData, "CC-JSON-020"},
		{"bad base64", `{"type":"preimage-sha-256","preimage":"***"}`, KindParse, "CC-JSON-021"},
		{"prefix with both", `{"type":"prefix-sha-256","prefix":"","maxMessageLength":0,` +
			`"subfulfillment":{"type":"preimage-sha-256","preimage":""},"subcondition":"` + emptyPreimageCondition + `"}`,
			KindParse, "CC-JSON-022"},
		{"null child", `{"type":"threshold-sha-256","threshold":1,"subfulfillments":[null]}`, KindParse, "CC-JSON-023"},
		{"threshold too high", `{"type":"threshold-sha-256","threshold":2,"subfulfillments":[{"type":"preimage-sha-256","preimage":""}]}`,
			KindValidation, "CC-THR-002"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tc.js))
			requireRule(t, err, tc.kind, tc.ruleID)
		})
	}
}

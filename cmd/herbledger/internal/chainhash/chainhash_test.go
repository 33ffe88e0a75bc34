package chainhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical_SortsKeys(t *testing.T) {
	a := map[string]any{"b": int64(2), "a": "x", "nested": map[string]any{"z": true, "y": nil}}
	b := map[string]any{"nested": map[string]any{"y": nil, "z": true}, "a": "x", "b": int64(2)}

	assert.Equal(t, `{"a":"x","b":2,"nested":{"y":null,"z":true}}`, string(Canonical(a)))
	assert.Equal(t, Canonical(a), Canonical(b))
}

func TestCanonical_Struct(t *testing.T) {
	type payload struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}
	assert.Equal(t, `{"alpha":1,"zeta":"z"}`, string(Canonical(payload{Zeta: "z", Alpha: 1})))
}

func TestLink_IgnoresKeyOrder(t *testing.T) {
	v := map[string]any{"batch_id": int64(1), "cid": "bafy"}
	assert.Equal(t, Link(Genesis, v), Link(Genesis, map[string]any{"cid": "bafy", "batch_id": int64(1)}))
	assert.NotEqual(t, Link(Genesis, v), Link(Genesis, map[string]any{"batch_id": int64(2), "cid": "bafy"}))
}

func TestLink_DependsOnPredecessor(t *testing.T) {
	payload := map[string]any{"kind": "BatchCreated", "batch_id": int64(1)}

	first := Link(Genesis, payload)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, Link(Genesis, payload))
	assert.NotEqual(t, first, Link("other", payload))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "0123456789ab...", Short("0123456789abcdef"))
}

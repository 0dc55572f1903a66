package upgrades

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepair(t *testing.T) {
	text := "intro\nADD [[A]]\nCUT [[B]]\n\nADD [[C]]\n  why C\noutro"
	blocks := Extract(text, FormatCommander)

	tests := []struct {
		name    string
		removed []bool
		want    string
	}{
		{"nothing removed", []bool{false, false}, text},
		{"first removed", []bool{true, false}, "intro\n\nADD [[C]]\n  why C\noutro"},
		{"second removed", []bool{false, true}, "intro\nADD [[A]]\nCUT [[B]]\n\noutro"},
		{"all removed", []bool{true, true}, "intro\n\noutro"},
		{"short removal slice", []bool{true}, "intro\n\nADD [[C]]\n  why C\noutro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Repair(text, blocks, tt.removed)
			assert.Equal(t, tt.want, got)
			assert.True(t, isSubsequence(got, text))
		})
	}
}

func TestRepair_PreservesCarriageReturns(t *testing.T) {
	text := "keep\r\nADD [[A]]\r\nalso keep\r"
	blocks := Extract(text, FormatCommander)

	got := Repair(text, blocks, []bool{true})
	assert.Equal(t, "keep\r\nalso keep\r", got)
}

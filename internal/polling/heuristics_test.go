package polling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMACKnownVirtualPrefix(t *testing.T) {
	c := ClassifyMAC("00:50:56:aa:bb:cc", "")
	assert.True(t, c.Virtual)
	assert.False(t, c.Randomized)
	assert.Contains(t, c.VirtualReason, "VMware")
}

func TestClassifyMACLocallyAdministeredApple(t *testing.T) {
	// 0x02 bit set in the first octet marks locally-administered.
	c := ClassifyMAC("02:11:22:33:44:55", "Apple Inc.")
	assert.True(t, c.Virtual)
	assert.True(t, c.Randomized)
	assert.Contains(t, c.VirtualReason, "Apple")
}

func TestClassifyMACPhysicalAddressIsNotFlagged(t *testing.T) {
	c := ClassifyMAC("10:20:30:40:50:60", "Dell Inc.")
	assert.False(t, c.Virtual)
	assert.False(t, c.Randomized)
}

func TestClassifyMACTooShortIsSafe(t *testing.T) {
	c := ClassifyMAC("x", "")
	assert.False(t, c.Virtual)
}

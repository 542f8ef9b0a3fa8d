package firewallclient

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUptimeWithDays(t *testing.T) {
	assert.EqualValues(t, 12*86400+3*3600+4*60+5, parseUptime("12 days, 3:04:05"))
}

func TestParseUptimeWithoutDays(t *testing.T) {
	assert.EqualValues(t, 3*3600+4*60+5, parseUptime("3:04:05"))
}

func TestExtractTagFindsSingleValue(t *testing.T) {
	assert.Equal(t, "42", extractTag("<foo>bar</foo><job>42</job>", "job"))
}

func TestExtractTagMissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", extractTag("<foo>bar</foo>", "job"))
}

func TestFindAllWalksArbitrarilyNamedChildren(t *testing.T) {
	var root xmlNode
	err := xml.Unmarshal([]byte(`<result><dp0><minute><value>1,2,3</value></minute></dp0><dp1><minute><value>4,5</value></minute></dp1></result>`), &root)
	assert.NoError(t, err)

	minutes := findAll(root, "minute")
	assert.Len(t, minutes, 2)

	values := []xmlNode{}
	for _, m := range minutes {
		values = append(values, findAll(m, "value")...)
	}
	assert.Len(t, values, 2)
}

func TestAppendUniqueDeduplicates(t *testing.T) {
	s := appendUnique(nil, "a")
	s = appendUnique(s, "b")
	s = appendUnique(s, "a")
	assert.Equal(t, []string{"a", "b"}, s)
}

func TestAppendUniqueSkipsEmpty(t *testing.T) {
	s := appendUnique(nil, "")
	assert.Empty(t, s)
}

func TestAppendUniqueIntDeduplicates(t *testing.T) {
	s := appendUniqueInt(nil, 80)
	s = appendUniqueInt(s, 443)
	s = appendUniqueInt(s, 80)
	assert.Equal(t, []int{80, 443}, s)
}

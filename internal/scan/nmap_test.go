package scan

import (
	"testing"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestProfileArgsNeverUsesShellInterpolation(t *testing.T) {
	for _, profile := range []models.ScanProfile{models.ScanQuick, models.ScanBalanced, models.ScanThorough} {
		args := profileArgs(profile, "192.168.1.1; rm -rf /")
		found := false
		for _, a := range args {
			if a == "192.168.1.1; rm -rf /" {
				found = true
			}
		}
		assert.True(t, found, "target must appear as a single argv element, never concatenated into another flag")
	}
}

func TestParseXMLHostUpWithOpenPorts(t *testing.T) {
	raw := []byte(`<nmaprun><host>
		<status state="up"/>
		<os><osmatch name="Linux 5.X" accuracy="95"/><osmatch name="Linux 4.X" accuracy="80"/></os>
		<ports>
			<port protocol="tcp" portid="22"><state state="open"/><service name="ssh" product="OpenSSH" version="8.9"/></port>
			<port protocol="tcp" portid="80"><state state="closed"/><service name="http"/></port>
		</ports>
	</host></nmaprun>`)

	result, err := ParseXML(raw)
	assert.NoError(t, err)
	assert.Equal(t, models.HostUp, result.HostStatus)
	assert.Equal(t, "Linux 5.X", result.OSName)
	assert.Len(t, result.Ports, 2)
	assert.Equal(t, 22, result.Ports[0].Number)
	assert.Equal(t, models.PortOpen, result.Ports[0].State)
	assert.Equal(t, "OpenSSH 8.9", result.Ports[0].ProductVersion())
	assert.Equal(t, models.PortClosed, result.Ports[1].State)
}

func TestParseXMLHostDown(t *testing.T) {
	raw := []byte(`<nmaprun><host><status state="down"/></host></nmaprun>`)
	result, err := ParseXML(raw)
	assert.NoError(t, err)
	assert.Equal(t, models.HostDown, result.HostStatus)
	assert.Empty(t, result.Ports)
}

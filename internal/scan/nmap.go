package scan

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// profileArgs is the fixed nmap argument set per profile. Args are
// always passed as a []string to exec.CommandContext; a scan target is
// never interpolated into a shell string.
func profileArgs(profile models.ScanProfile, target string) []string {
	switch profile {
	case models.ScanQuick:
		return []string{"-Pn", "-T4", "-F", "-oX", "-", target}
	case models.ScanThorough:
		return []string{"-Pn", "-sV", "-sC", "-O", "--version-all", "-T3", "-oX", "-", target}
	default: // balanced
		return []string{"-Pn", "-sV", "-O", "--version-intensity", "5", "-T4", "-oX", "-", target}
	}
}

// Scanner runs nmap against scannable targets.
type Scanner struct {
	binary string
}

func NewScanner() *Scanner {
	return &Scanner{binary: "nmap"}
}

// Run executes a single nmap scan against target and parses the result.
// target must pass IsScannable; Run refuses to scan anything else. The
// caller is responsible for attaching DeviceID to the returned result.
func (s *Scanner) Run(ctx context.Context, target string, profile models.ScanProfile) (*models.ScanResult, error) {
	if !IsScannable(target) {
		return nil, errkind.New(errkind.Safety, "scan.nmap.run", fmt.Errorf("target %s is not a private address", target))
	}

	timeout := models.ScanProfileTimeout(profile)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := profileArgs(profile, target)
	cmd := exec.CommandContext(runCtx, s.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, errkind.New(errkind.Transient, "scan.nmap.run", fmt.Errorf("scan of %s timed out after %s", target, timeout))
	}
	if err != nil {
		return nil, errkind.New(errkind.Upstream, "scan.nmap.run", fmt.Errorf("nmap exited with error: %w (stderr: %s)", err, stderr.String()))
	}

	result, err := ParseXML(stdout.Bytes())
	if err != nil {
		return nil, errkind.New(errkind.Upstream, "scan.nmap.parse", err)
	}
	result.TargetIP = target
	result.Profile = profile
	result.Duration = duration
	result.Time = time.Now()
	result.RawOutput = stdout.String()
	return result, nil
}

// nmapRun mirrors the subset of nmap's XML output schema the collector
// reads: host status, OS matches, and port table.
type nmapRun struct {
	Host struct {
		Status struct {
			State string `xml:"state,attr"`
		} `xml:"status"`
		OS struct {
			OSMatch []struct {
				Name     string `xml:"name,attr"`
				Accuracy string `xml:"accuracy,attr"`
			} `xml:"osmatch"`
		} `xml:"os"`
		Ports struct {
			Port []struct {
				Protocol string `xml:"protocol,attr"`
				PortID   string `xml:"portid,attr"`
				State    struct {
					State string `xml:"state,attr"`
				} `xml:"state"`
				Service struct {
					Name    string `xml:"name,attr"`
					Product string `xml:"product,attr"`
					Version string `xml:"version,attr"`
				} `xml:"service"`
			} `xml:"port"`
		} `xml:"ports"`
	} `xml:"host"`
}

// ParseXML parses nmap's -oX output into a ScanResult.
func ParseXML(raw []byte) (*models.ScanResult, error) {
	var run nmapRun
	if err := xml.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("parse nmap xml: %w", err)
	}

	result := &models.ScanResult{}
	result.HostStatus = models.HostDown
	if run.Host.Status.State == "up" {
		result.HostStatus = models.HostUp
	}

	for _, m := range run.Host.OS.OSMatch {
		acc, _ := strconv.ParseFloat(m.Accuracy, 64)
		result.OSMatches = append(result.OSMatches, models.OSMatch{Name: m.Name, Confidence: acc})
	}
	if top := result.TopOSMatch(); top.Name != "" {
		result.OSName = top.Name
	}

	for _, p := range run.Host.Ports.Port {
		port := models.Port{Protocol: p.Protocol, Service: p.Service.Name, Product: p.Service.Product, Version: p.Service.Version}
		if n, err := strconv.Atoi(p.PortID); err == nil {
			port.Number = n
		}
		switch p.State.State {
		case "open":
			port.State = models.PortOpen
		case "filtered":
			port.State = models.PortFiltered
		default:
			port.State = models.PortClosed
		}
		result.Ports = append(result.Ports, port)
	}

	return result, nil
}

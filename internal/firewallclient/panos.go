package firewallclient

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
)

// PANOSClient speaks the firewall's XML management API (type=op for
// synchronous commands, type=log for the async log-job workflow) over
// HTTPS. It is the production Client; tests inject a fake instead.
type PANOSClient struct {
	address    string
	apiKey     string
	httpClient *http.Client
}

// NewPANOSClient creates a client for one firewall's management address.
// The management API commonly terminates TLS with a self-signed
// certificate, so verification is skipped the same way the original
// Python client disabled certificate checking for these endpoints.
func NewPANOSClient(address, apiKey string) *PANOSClient {
	return &PANOSClient{
		address: address,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
	}
}

type opResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  string   `xml:"status,attr"`
	Result  string   `xml:",innerxml"`
}

func (c *PANOSClient) get(ctx context.Context, params url.Values) ([]byte, time.Duration, error) {
	params.Set("key", c.apiKey)
	u := fmt.Sprintf("https://%s/api/?%s", c.address, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, errkind.New(errkind.Validation, "firewallclient.request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, latency, errkind.New(errkind.Transient, "firewallclient.do", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, latency, errkind.New(errkind.Transient, "firewallclient.read", err)
	}

	if resp.StatusCode >= 500 {
		return nil, latency, errkind.New(errkind.Transient, "firewallclient.http", fmt.Errorf("http %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, latency, errkind.New(errkind.Upstream, "firewallclient.http", fmt.Errorf("http %d", resp.StatusCode))
	}
	return body, latency, nil
}

// op runs a synchronous "type=op" command and returns its <result> inner XML.
func (c *PANOSClient) op(ctx context.Context, cmd string) (string, time.Duration, error) {
	body, latency, err := c.get(ctx, url.Values{"type": {"op"}, "cmd": {cmd}})
	if err != nil {
		return "", latency, err
	}
	var parsed opResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", latency, errkind.New(errkind.Upstream, "firewallclient.parse", err)
	}
	if parsed.Status != "success" {
		return "", latency, errkind.New(errkind.Upstream, "firewallclient.status", fmt.Errorf("firewall returned status %q", parsed.Status))
	}
	return parsed.Result, latency, nil
}

// log runs the two-step async log workflow: submit a query, poll once
// for the job result. A firewall under heavy load can take longer than
// one poll to finish the job; callers treat an empty result as "try
// again next tick" rather than a hard failure.
func (c *PANOSClient) log(ctx context.Context, logType, query string, limit int) (string, time.Duration, error) {
	submitBody, latency, err := c.get(ctx, url.Values{
		"type":     {"log"},
		"log-type": {logType},
		"query":    {query},
		"nlogs":    {strconv.Itoa(limit)},
	})
	if err != nil {
		return "", latency, err
	}

	var submitted opResponse
	if err := xml.Unmarshal(submitBody, &submitted); err != nil {
		return "", latency, errkind.New(errkind.Upstream, "firewallclient.parse", err)
	}
	jobID := extractTag(submitted.Result, "job")
	if jobID == "" {
		return "", latency, errkind.New(errkind.Upstream, "firewallclient.logjob", fmt.Errorf("no job id returned for log-type %s", logType))
	}

	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return "", latency, ctx.Err()
	}

	resultBody, resultLatency, err := c.get(ctx, url.Values{"type": {"log"}, "action": {"get"}, "job-id": {jobID}})
	if err != nil {
		return "", latency + resultLatency, err
	}
	var result opResponse
	if err := xml.Unmarshal(resultBody, &result); err != nil {
		return "", latency + resultLatency, errkind.New(errkind.Upstream, "firewallclient.parse", err)
	}
	return result.Result, latency + resultLatency, nil
}

// extractTag is a minimal best-effort scrape for a single-valued tag
// inside an innerxml blob, used only for the job id which has no
// sibling elements worth a full struct.
func extractTag(inner, tag string) string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	start := strings.Index(inner, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(inner[start:], closeTag)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(inner[start : start+end])
}

func (c *PANOSClient) SystemInfo(ctx context.Context) (Result[SystemInfo], error) {
	inner, latency, err := c.op(ctx, "<show><system><info></info></system></show>")
	if err != nil {
		return Result[SystemInfo]{}, err
	}
	var v struct {
		System struct {
			Hostname  string `xml:"hostname"`
			SWVersion string `xml:"sw-version"`
			Uptime    string `xml:"uptime"`
			Serial    string `xml:"serial"`
		} `xml:"system"`
	}
	if err := xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v); err != nil {
		return Result[SystemInfo]{}, errkind.New(errkind.Upstream, "firewallclient.systeminfo", err)
	}
	return Result[SystemInfo]{
		Data: SystemInfo{
			Hostname:     v.System.Hostname,
			PANOSVersion: v.System.SWVersion,
			UptimeSec:    parseUptime(v.System.Uptime),
			SerialNumber: v.System.Serial,
		},
		Latency: latency,
	}, nil
}

// parseUptime converts PAN-OS's "12 days, 3:04:05" uptime string to seconds.
func parseUptime(s string) int64 {
	parts := strings.SplitN(s, ",", 2)
	var days int64
	if len(parts) == 2 {
		fmt.Sscanf(strings.TrimSpace(parts[0]), "%d days", &days)
	}
	var h, m, sec int64
	clock := strings.TrimSpace(parts[len(parts)-1])
	fmt.Sscanf(clock, "%d:%d:%d", &h, &m, &sec)
	return days*86400 + h*3600 + m*60 + sec
}

func (c *PANOSClient) InterfaceCounters(ctx context.Context) (Result[[]InterfaceCounters], error) {
	inner, latency, err := c.op(ctx, "<show><counter><interface>all</interface></counter></show>")
	if err != nil {
		return Result[[]InterfaceCounters]{}, err
	}
	var v struct {
		Ifnet struct {
			Entries []struct {
				Name    string `xml:"name"`
				Ibytes  int64  `xml:"ibytes"`
				Obytes  int64  `xml:"obytes"`
				Ipkts   int64  `xml:"ipackets"`
				Opkts   int64  `xml:"opackets"`
				Ierrors int64  `xml:"ierrors"`
				Idrops  int64  `xml:"idrops"`
			} `xml:"entry"`
		} `xml:"ifnet"`
	}
	if err := xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v); err != nil {
		return Result[[]InterfaceCounters]{}, errkind.New(errkind.Upstream, "firewallclient.counters", err)
	}
	out := make([]InterfaceCounters, 0, len(v.Ifnet.Entries))
	for _, e := range v.Ifnet.Entries {
		out = append(out, InterfaceCounters{
			Name: e.Name, BytesIn: e.Ibytes, BytesOut: e.Obytes,
			PacketsIn: e.Ipkts, PacketsOut: e.Opkts, Errors: e.Ierrors, Drops: e.Idrops,
		})
	}
	return Result[[]InterfaceCounters]{Data: out, Latency: latency}, nil
}

func (c *PANOSClient) SessionInfo(ctx context.Context) (Result[SessionInfo], error) {
	inner, latency, err := c.op(ctx, "<show><session><info></info></session></show>")
	if err != nil {
		return Result[SessionInfo]{}, err
	}
	var v struct {
		NumActive int `xml:"num-active"`
		NumTCP    int `xml:"num-tcp"`
		NumUDP    int `xml:"num-udp"`
		NumICMP   int `xml:"num-icmp"`
		NumMax    int `xml:"num-max"`
	}
	if err := xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v); err != nil {
		return Result[SessionInfo]{}, errkind.New(errkind.Upstream, "firewallclient.sessioninfo", err)
	}
	return Result[SessionInfo]{
		Data:    SessionInfo{Active: v.NumActive, TCP: v.NumTCP, UDP: v.NumUDP, ICMP: v.NumICMP, Max: v.NumMax},
		Latency: latency,
	}, nil
}

// xmlNode is a generic recursive-descent XML tree used where the
// firewall's response nests an unpredictable number of dynamically
// named elements (dp0, dp1, ... one per data processor).
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

func findAll(n xmlNode, name string) []xmlNode {
	var out []xmlNode
	if n.XMLName.Local == name {
		out = append(out, n)
	}
	for _, child := range n.Nodes {
		out = append(out, findAll(child, name)...)
	}
	return out
}

// ResourceUsage combines data-plane CPU from the resource-monitor op
// command (averaged across every data processor core's 1-minute sample)
// with management-plane CPU and memory scraped from the "top"-style text
// blob returned by "show system resources".
func (c *PANOSClient) ResourceUsage(ctx context.Context) (Result[ResourceUsage], error) {
	inner, latency, err := c.op(ctx, "<show><running><resource-monitor><hour><last>1</last></hour></resource-monitor></running></show>")
	if err != nil {
		return Result[ResourceUsage]{}, err
	}
	var root xmlNode
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &root)

	var dpCPU float64
	var coreValues []float64
	for _, minute := range findAll(root, "minute") {
		for _, value := range findAll(minute, "value") {
			for _, s := range strings.Split(value.Content, ",") {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				if n, err := strconv.ParseFloat(s, 64); err == nil {
					coreValues = append(coreValues, n)
				}
			}
		}
	}
	if len(coreValues) > 0 {
		var sum float64
		for _, v := range coreValues {
			sum += v
		}
		dpCPU = sum / float64(len(coreValues))
	}

	mgmtCPU, memPct, resLatency := c.systemResources(ctx)
	return Result[ResourceUsage]{
		Data:    ResourceUsage{CPUDataPlane: dpCPU, CPUMgmtPlane: mgmtCPU, MemoryPct: memPct},
		Latency: latency + resLatency,
	}, nil
}

// systemResources parses the "top"-style text result of "show system
// resources" for the idle-CPU and memory-used percentages. Failure to
// parse is non-fatal: callers fall back to zero values.
func (c *PANOSClient) systemResources(ctx context.Context) (mgmtCPU, memPct float64, latency time.Duration) {
	inner, lat, err := c.op(ctx, "<show><system><resources></resources></system></show>")
	latency = lat
	if err != nil {
		return 0, 0, latency
	}
	text := extractTag(inner, "result")
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(line, "Cpu(s):"):
			fields := strings.SplitN(line, ":", 2)
			cpuPart := fields[len(fields)-1]
			for _, part := range strings.Split(cpuPart, ",") {
				part = strings.TrimSpace(part)
				if strings.Contains(part, "id") {
					var idle float64
					fmt.Sscanf(part, "%f", &idle)
					mgmtCPU = 100 - idle
				}
			}
		case strings.Contains(line, "Mem") && strings.Contains(line, "used"):
			var total, used float64
			fields := strings.Fields(line)
			for i, f := range fields {
				if strings.Contains(f, "total") && i > 0 {
					fmt.Sscanf(fields[i-1], "%f", &total)
				}
				if strings.Contains(f, "used") && i > 0 {
					fmt.Sscanf(fields[i-1], "%f", &used)
				}
			}
			if total > 0 {
				memPct = used / total * 100
			}
		}
	}
	return mgmtCPU, memPct, latency
}

func (c *PANOSClient) WANInterface(ctx context.Context, iface string) (Result[WANInterfaceStatus], error) {
	inner, latency, err := c.op(ctx, fmt.Sprintf("<show><interface>%s</interface></show>", iface))
	if err != nil {
		return Result[WANInterfaceStatus]{}, err
	}
	var v struct {
		Hw struct {
			Status string `xml:"status"`
			Speed  string `xml:"speed"`
		} `xml:"hw"`
		Ifnet struct {
			Entry struct {
				IP string `xml:"ip"`
			} `xml:"entry"`
		} `xml:"ifnet"`
	}
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v)
	linkMbps := 0
	fmt.Sscanf(v.Hw.Speed, "%d", &linkMbps)
	return Result[WANInterfaceStatus]{
		Data: WANInterfaceStatus{
			Address:  v.Ifnet.Entry.IP,
			LinkMbps: linkMbps,
			Up:       v.Hw.Status == "up",
		},
		Latency: latency,
	}, nil
}

func (c *PANOSClient) ARPTable(ctx context.Context) (Result[[]ARPEntry], error) {
	inner, latency, err := c.op(ctx, `<show><arp><entry name="all"/></arp></show>`)
	if err != nil {
		return Result[[]ARPEntry]{}, err
	}
	var v struct {
		Entries []struct {
			IP        string `xml:"ip"`
			MAC       string `xml:"mac"`
			Interface string `xml:"interface"`
			Port      string `xml:"port"`
		} `xml:"entries>entry"`
	}
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v)
	out := make([]ARPEntry, 0, len(v.Entries))
	for _, e := range v.Entries {
		out = append(out, ARPEntry{IP: e.IP, MAC: e.MAC, Iface: e.Interface})
	}
	return Result[[]ARPEntry]{Data: out, Latency: latency}, nil
}

func (c *PANOSClient) DHCPLeases(ctx context.Context) (Result[[]DHCPLease], error) {
	inner, latency, err := c.op(ctx, "<show><dhcp><server><lease></lease></server></dhcp></show>")
	if err != nil {
		return Result[[]DHCPLease]{}, err
	}
	var v struct {
		Entries []struct {
			IP       string `xml:"ip"`
			MAC      string `xml:"mac"`
			Hostname string `xml:"hostname"`
			Expiry   string `xml:"expiry"`
		} `xml:"entry"`
	}
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v)
	out := make([]DHCPLease, 0, len(v.Entries))
	for _, e := range v.Entries {
		out = append(out, DHCPLease{IP: e.IP, MAC: e.MAC, Hostname: e.Hostname})
	}
	return Result[[]DHCPLease]{Data: out, Latency: latency}, nil
}

func (c *PANOSClient) fetchLog(ctx context.Context, logType string, q LogQuery) (Result[[]LogRecord], error) {
	query := fmt.Sprintf("(receive_time geq '%s')", q.Since.Format("2006/01/02 15:04:05"))
	inner, latency, err := c.log(ctx, logType, query, q.Limit)
	if err != nil {
		return Result[[]LogRecord]{}, err
	}
	var v struct {
		Log struct {
			Logs struct {
				Entries []struct {
					Time     string `xml:"receive_time"`
					Severity string `xml:"severity"`
					Src      string `xml:"src"`
					Dst      string `xml:"dst"`
					Detail   string `xml:"threatid,omitempty"`
				} `xml:"entry"`
			} `xml:"logs"`
		} `xml:"log"`
	}
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v)
	out := make([]LogRecord, 0, len(v.Log.Logs.Entries))
	for _, e := range v.Log.Logs.Entries {
		t, _ := time.Parse("2006/01/02 15:04:05", e.Time)
		out = append(out, LogRecord{Time: t, Severity: e.Severity, Source: e.Src, Dest: e.Dst, Detail: e.Detail})
	}
	return Result[[]LogRecord]{Data: out, Latency: latency}, nil
}

func (c *PANOSClient) ThreatLogs(ctx context.Context, q LogQuery) (Result[[]LogRecord], error) {
	return c.fetchLog(ctx, "threat", q)
}

func (c *PANOSClient) URLLogs(ctx context.Context, q LogQuery) (Result[[]LogRecord], error) {
	return c.fetchLog(ctx, "url", q)
}

func (c *PANOSClient) SystemLogs(ctx context.Context, q LogQuery) (Result[[]LogRecord], error) {
	return c.fetchLog(ctx, "system", q)
}

func (c *PANOSClient) TrafficLogs(ctx context.Context, q LogQuery) (Result[[]LogRecord], error) {
	return c.fetchLog(ctx, "traffic", q)
}

// ApplicationStatistics aggregates the traffic-log window by application,
// mirroring the original client's approach of deriving "top applications"
// from traffic logs rather than a dedicated statistics endpoint.
func (c *PANOSClient) ApplicationStatistics(ctx context.Context) (Result[[]ApplicationStat], error) {
	query := "(subtype eq end)"
	inner, latency, err := c.log(ctx, "traffic", query, 1000)
	if err != nil {
		return Result[[]ApplicationStat]{}, err
	}
	var v struct {
		Log struct {
			Logs struct {
				Entries []struct {
					App    string `xml:"app"`
					Src    string `xml:"src"`
					Dst    string `xml:"dst"`
					Bytes  int64  `xml:"bytes"`
					BytesS int64  `xml:"bytes_sent"`
					BytesR int64  `xml:"bytes_received"`
					Proto  string `xml:"proto"`
					DPort  int    `xml:"dport"`
				} `xml:"entry"`
			} `xml:"logs"`
		} `xml:"log"`
	}
	_ = xml.Unmarshal([]byte("<r>"+inner+"</r>"), &v)

	byApp := map[string]*ApplicationStat{}
	order := []string{}
	for _, e := range v.Log.Logs.Entries {
		if e.App == "" {
			continue
		}
		stat, ok := byApp[e.App]
		if !ok {
			stat = &ApplicationStat{Application: e.App}
			byApp[e.App] = stat
			order = append(order, e.App)
		}
		stat.BytesSent += e.BytesS
		stat.BytesRecv += e.BytesR
		stat.Sessions++
		stat.SourceIPs = appendUnique(stat.SourceIPs, e.Src)
		stat.DestIPs = appendUnique(stat.DestIPs, e.Dst)
		stat.Protocols = appendUnique(stat.Protocols, e.Proto)
		if e.DPort != 0 {
			stat.Ports = appendUniqueInt(stat.Ports, e.DPort)
		}
	}
	out := make([]ApplicationStat, 0, len(order))
	for _, app := range order {
		out = append(out, *byApp[app])
	}
	return Result[[]ApplicationStat]{Data: out, Latency: latency}, nil
}

func appendUnique(s []string, v string) []string {
	if v == "" {
		return s
	}
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

func appendUniqueInt(s []int, v int) []int {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

var _ Client = (*PANOSClient)(nil)

package model

import "time"

// Uptime is a RouterOS uptime split into calendar components.
type Uptime struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Duration returns the total uptime.
func (u Uptime) Duration() time.Duration {
	return time.Duration(u.Days)*24*time.Hour +
		time.Duration(u.Hours)*time.Hour +
		time.Duration(u.Minutes)*time.Minute +
		time.Duration(u.Seconds)*time.Second
}

type SystemSnapshot struct {
	Uptime            Uptime    `json:"uptime"`
	UptimeText        string    `json:"uptimeText"`
	LastReboot        time.Time `json:"lastReboot"`
	Version           string    `json:"version"`
	Model             string    `json:"model"`
	SerialNumber      string    `json:"serialNumber"`
	CPULoad           int       `json:"cpuLoad"`
	CPUCores          int       `json:"cpuCores"`
	CPUFrequencyMHz   int       `json:"cpuFrequencyMhz"`
	Temperature       float64   `json:"temperature"`
	TotalMemory       int64     `json:"totalMemory"`
	UsedMemory        int64     `json:"usedMemory"`
	FreeMemory        int64     `json:"freeMemory"`
	MemoryUsedPercent int       `json:"memoryUsedPercent"`
	TotalDisk         int64     `json:"totalHdd"`
	FreeDisk          int64     `json:"freeHdd"`
	Architecture      string    `json:"architecture"`
	BoardName         string    `json:"boardName"`
	FirmwareType      string    `json:"firmwareType"`
	FactorySoftware   string    `json:"factorySoftware"`
	ProcessCount      int       `json:"processCount"`
	CapturedAt        time.Time `json:"timestamp"`
}

type InterfaceInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Comment    string `json:"comment"`
	Running    bool   `json:"running"`
	Disabled   bool   `json:"disabled"`
	MACAddress string `json:"macAddress"`
}

type InterfaceTraffic struct {
	Name               string    `json:"name"`
	RxBitsPerSecond    float64   `json:"rxBitsPerSecond"`
	TxBitsPerSecond    float64   `json:"txBitsPerSecond"`
	RxPacketsPerSecond float64   `json:"rxPacketsPerSecond"`
	TxPacketsPerSecond float64   `json:"txPacketsPerSecond"`
	RxDrops            int64     `json:"rxDrops"`
	TxDrops            int64     `json:"txDrops"`
	RxErrors           int64     `json:"rxErrors"`
	TxErrors           int64     `json:"txErrors"`
	CapturedAt         time.Time `json:"timestamp"`
}

type TrafficSummary struct {
	Download   float64   `json:"download"`
	Upload     float64   `json:"upload"`
	Total      float64   `json:"total"`
	CapturedAt time.Time `json:"timestamp"`
}

type WiFiClient struct {
	ID             string    `json:"id"`
	Interface      string    `json:"interface"`
	MACAddress     string    `json:"macAddress"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	Name           string    `json:"name,omitempty"`
	SignalStrength int       `json:"signalStrength"`
	SNR            int       `json:"snr"`
	SignalQuality  int       `json:"signalQuality"`
	TxRate         string    `json:"txRate"`
	RxRate         string    `json:"rxRate"`
	Band           string    `json:"band"`
	Uptime         Uptime    `json:"uptime"`
	DeviceType     string    `json:"deviceType,omitempty"`
	Vendor         string    `json:"vendor,omitempty"`
	CapturedAt     time.Time `json:"timestamp"`
}

type StorageDevice struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Total       int64     `json:"total"`
	Used        int64     `json:"used"`
	Free        int64     `json:"free"`
	UsedPercent int       `json:"usedPercent"`
	CapturedAt  time.Time `json:"timestamp"`
}

type FileInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	CreationTime string `json:"creationDate"`
}

type LogEntry struct {
	ID       string `json:"id"`
	Topics   string `json:"topics"`
	Message  string `json:"message"`
	Time     string `json:"time"`
	Severity string `json:"severity"`
}

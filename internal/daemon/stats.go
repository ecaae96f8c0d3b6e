package daemon

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// sampleSystemStats gathers a best-effort CPU/mem/load/disk snapshot for a
// StatsUpdate broadcast. No example in the pack reads /proc for this; the
// teacher's own stats are whatever Wails's runtime exposes to its frontend,
// which isn't wirable outside a GUI. Reading /proc directly keeps the daemon
// dependency-free for a concern no pack library covers, and degrades to
// zeroes on non-Linux rather than erroring: these stats are best-effort.
func sampleSystemStats(prev cpuSample) (SystemStats, cpuSample) {
	cpuPct, next := sampleCPUPercent(prev)
	return SystemStats{
		CPUPct:  cpuPct,
		MemPct:  sampleMemPercent(),
		Load1:   sampleLoad1(),
		DiskPct: sampleDiskPercent("/"),
	}, next
}

type cpuSample struct {
	idle, total uint64
}

// sampleCPUPercent reads the first "cpu" line of /proc/stat and derives a
// percentage from the delta against prev. Returns 0 on the first call (no
// prior sample) or on any read failure.
func sampleCPUPercent(prev cpuSample) (float64, cpuSample) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, prev
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, prev
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, prev
	}
	var total, idle uint64
	for i, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		total += v
		if i == 3 { // idle field
			idle = v
		}
	}
	cur := cpuSample{idle: idle, total: total}
	if prev.total == 0 || cur.total <= prev.total {
		return 0, cur
	}
	deltaTotal := cur.total - prev.total
	deltaIdle := cur.idle - prev.idle
	if deltaIdle > deltaTotal {
		return 0, cur
	}
	pct := 100 * float64(deltaTotal-deltaIdle) / float64(deltaTotal)
	return pct, cur
}

func sampleMemPercent() float64 {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	var total, available float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMeminfoKB(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			available = parseMeminfoKB(line)
		}
	}
	if total == 0 {
		return 0
	}
	return 100 * (total - available) / total
}

func parseMeminfoKB(line string) float64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0
	}
	return v
}

func sampleLoad1() float64 {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) < 1 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

// sampleDiskPercent reports used/total for the filesystem containing path,
// or 0 when the platform-specific statfs syscall is unavailable.
func sampleDiskPercent(path string) float64 {
	total, free, ok := diskStatfs(path)
	if !ok || total == 0 {
		return 0
	}
	return 100 * float64(total-free) / float64(total)
}

package hub

import (
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

// processMemory reports this daemon's own memory usage for the `stats`
// command: OS-level RSS/VMS plus Go heap numbers.
func processMemory() map[string]uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	mem := map[string]uint64{
		"heapAlloc": ms.HeapAlloc,
		"heapSys":   ms.HeapSys,
		"stackSys":  ms.StackSys,
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			mem["rss"] = info.RSS
			mem["vms"] = info.VMS
		}
	}

	return mem
}

// LogMemoryUsage periodically prints processMemory to the local log.
// Debug aid only; it sends nothing to viewers.
func LogMemoryUsage(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mem := processMemory()
			log.Printf("[hub] memory usage rss: %dKb / heapAlloc: %dKb / heapSys: %dKb",
				mem["rss"]/1024, mem["heapAlloc"]/1024, mem["heapSys"]/1024)
		}
	}
}

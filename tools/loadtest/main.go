package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type options struct {
	url      string
	clients  int
	provider string
	toasts   int
	duration time.Duration
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:           "loadtest",
		Short:         "Drive a toastbox server with concurrent WebSocket renderers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run(opts)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	cmd.Flags().IntVar(&opts.clients, "clients", 10, "Number of concurrent clients")
	cmd.Flags().StringVar(&opts.provider, "provider", "loadtest", "Provider to join")
	cmd.Flags().IntVar(&opts.toasts, "toasts", 10, "Toasts added per client")
	cmd.Flags().DurationVar(&opts.duration, "toast-duration", 200*time.Millisecond, "Auto-dismiss duration of each toast")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type frame struct {
	Type  string `json:"type"`
	Toast struct {
		Message string `json:"message"`
	} `json:"toast"`
}

func run(opts options) {
	log.Printf("Load test: %d clients, %d toasts each, provider=%s", opts.clients, opts.toasts, opts.provider)

	var (
		connected int64
		sent      int64
		added     int64
		removed   int64
		errCount  int64
		latencies []time.Duration
		latencyMu sync.Mutex
		wg        sync.WaitGroup
	)

	start := time.Now()

	for i := 0; i < opts.clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			name := fmt.Sprintf("renderer_%d", id)
			wsURL := fmt.Sprintf("%s?client=%s", opts.url, name)
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				atomic.AddInt64(&errCount, 1)
				log.Printf("client %d: dial error: %v", id, err)
				return
			}
			defer conn.Close()
			atomic.AddInt64(&connected, 1)

			// Messages this client added, keyed by text, with their send time.
			var pendingMu sync.Mutex
			pending := make(map[string]time.Time)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					_, data, err := conn.ReadMessage()
					if err != nil {
						return
					}
					var f frame
					if err := json.Unmarshal(data, &f); err != nil {
						continue
					}
					switch f.Type {
					case "added":
						atomic.AddInt64(&added, 1)
						pendingMu.Lock()
						sentAt, ok := pending[f.Toast.Message]
						delete(pending, f.Toast.Message)
						pendingMu.Unlock()
						if ok {
							latencyMu.Lock()
							latencies = append(latencies, time.Since(sentAt))
							latencyMu.Unlock()
						}
					case "removed":
						atomic.AddInt64(&removed, 1)
					case "error":
						atomic.AddInt64(&errCount, 1)
					}
				}
			}()

			joinMsg, _ := json.Marshal(map[string]string{"type": "join", "provider": opts.provider})
			conn.WriteMessage(websocket.TextMessage, joinMsg)
			time.Sleep(100 * time.Millisecond)

			for j := 0; j < opts.toasts; j++ {
				text := fmt.Sprintf("toast %d from %s", j, name)
				addMsg, _ := json.Marshal(map[string]any{
					"type":     "add",
					"provider": opts.provider,
					"message":  text,
					"duration": opts.duration.Milliseconds(),
				})
				pendingMu.Lock()
				pending[text] = time.Now()
				pendingMu.Unlock()
				if err := conn.WriteMessage(websocket.TextMessage, addMsg); err != nil {
					atomic.AddInt64(&errCount, 1)
					return
				}
				atomic.AddInt64(&sent, 1)
				time.Sleep(10 * time.Millisecond)
			}

			// Let the last toasts expire.
			time.Sleep(opts.duration + 500*time.Millisecond)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			<-done
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Clients:     %d connected\n", connected)
	fmt.Printf("Added:       %d sent, %d added frames\n", sent, added)
	fmt.Printf("Removed:     %d frames\n", removed)
	fmt.Printf("Errors:      %d\n", errCount)
	if len(latencies) > 0 {
		fmt.Printf("Latency p50: %s\n", percentile(latencies, 50))
		fmt.Printf("Latency p95: %s\n", percentile(latencies, 95))
		fmt.Printf("Latency p99: %s\n", percentile(latencies, 99))
	}
	fmt.Printf("Throughput:  %.0f toasts/sec\n", float64(sent)/elapsed.Seconds())
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

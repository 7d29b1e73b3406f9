package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

func main() {
	url := "http://localhost:8080/voice-design"

	payload := map[string]interface{}{
		"text":     "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs.",
		"instruct": "A calm, low-pitched narrator with a slight rasp.",
		"language": "English",
	}

	jsonData, _ := json.Marshal(payload)

	totalRequests := 50
	ratePerSecond := 5

	ticker := time.NewTicker(time.Second / time.Duration(ratePerSecond))
	defer ticker.Stop()

	var wg sync.WaitGroup
	client := &http.Client{}

	for i := 1; i <= totalRequests; i++ {
		<-ticker.C // enforce rate limit

		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
			if err != nil {
				fmt.Printf("Request %d: error creating request: %v\n", n, err)
				return
			}

			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				fmt.Printf("Request %d: error sending request: %v\n", n, err)
				return
			}
			defer resp.Body.Close()

			bodyBytes, err := io.ReadAll(resp.Body)
			if err != nil {
				fmt.Printf("Request %d: error reading response: %v\n", n, err)
				return
			}

			var created struct {
				TaskID string `json:"task_id"`
			}
			if err := json.Unmarshal(bodyBytes, &created); err != nil || created.TaskID == "" {
				fmt.Printf("Request %d -> Status: %d, content: %s\n", n, resp.StatusCode, string(bodyBytes))
				return
			}

			// Poll until the task reaches a terminal status.
			for {
				time.Sleep(200 * time.Millisecond)

				statusResp, err := client.Get("http://localhost:8080/tasks/" + created.TaskID)
				if err != nil {
					fmt.Printf("Request %d: error polling task: %v\n", n, err)
					return
				}
				statusBytes, _ := io.ReadAll(statusResp.Body)
				statusResp.Body.Close()

				var status struct {
					Status   string `json:"status"`
					Progress int    `json:"progress"`
				}
				if err := json.Unmarshal(statusBytes, &status); err != nil {
					fmt.Printf("Request %d: bad status payload: %s\n", n, string(statusBytes))
					return
				}
				if status.Status != "running" {
					fmt.Printf("Request %d -> task %s finished: %s (progress %d)\n", n, created.TaskID, status.Status, status.Progress)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	fmt.Println("All requests completed")
}

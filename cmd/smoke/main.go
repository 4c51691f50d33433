// Smoke probe for a running stordesk-api instance. It checks health and
// info, then sends a provision request that fails validation on purpose:
// a 400 proves the endpoint is wired without creating any remote resource.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("STORDESK_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, path := range []string{"/healthz", "/v1/info"} {
		resp, err := client.Get(base + path)
		if err != nil {
			log.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		fmt.Printf("ok  %s\n", path)
	}

	// Missing password must be rejected before any appliance call.
	payload, _ := json.Marshal(map[string]any{
		"name":      "smoke-probe",
		"usageType": "personal",
	})
	resp, err := client.Post(base+"/v1/provision", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST /v1/provision: %v", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusBadRequest:
		fmt.Println("ok  /v1/provision rejects invalid input")
	case http.StatusUnauthorized:
		fmt.Println("ok  /v1/provision requires authentication")
	default:
		log.Fatalf("POST /v1/provision: unexpected status %d", resp.StatusCode)
	}

	fmt.Println("smoke passed")
}

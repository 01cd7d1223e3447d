// Command bookingprobe smoke-tests a running API instance: it lists slots for
// a provider, books the first one, verifies that a duplicate booking is
// rejected with a conflict, and cancels the appointment so the probe leaves no
// residue.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type bookingPayload struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	var (
		base     string
		provider string
		date     string
		duration int
		timeout  time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&provider, "provider", "", "Provider ID to probe (required)")
	flag.StringVar(&date, "date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "Date to probe")
	flag.IntVar(&duration, "duration", 30, "Requested duration in minutes")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	if provider == "" {
		log.Println("missing required -provider flag")
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: timeout}

	slots, err := fetchSlots(client, base, provider, date, duration)
	if err != nil {
		log.Fatalf("list slots: %v", err)
	}
	if len(slots) == 0 {
		log.Fatalf("no bookable slots for provider %s on %s", provider, date)
	}
	log.Printf("provider %s has %d slots on %s, booking %s", provider, len(slots), date, slots[0].Start)

	payload := bookingPayload{
		Date:            date,
		StartTime:       slots[0].Start,
		DurationMinutes: duration,
		ClientName:      "Booking Probe",
		ClientEmail:     "probe@example.com",
	}

	token, err := book(client, base, provider, payload)
	if err != nil {
		log.Fatalf("first booking: %v", err)
	}
	log.Printf("booked %s, verifying the window is now closed", payload.StartTime)

	if _, err := book(client, base, provider, payload); err == nil {
		log.Fatal("duplicate booking was accepted; conflict detection is broken")
	} else {
		log.Printf("duplicate rejected as expected: %v", err)
	}

	if err := cancel(client, base, token); err != nil {
		log.Fatalf("cleanup cancel: %v", err)
	}
	log.Println("probe passed, appointment canceled")
}

func fetchSlots(client *http.Client, base, provider, date string, duration int) ([]slot, error) {
	url := fmt.Sprintf("%s/providers/%s/slots?date=%s&duration=%d", base, provider, date, duration)
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, env)
	}
	var slots []slot
	if err := json.Unmarshal(env.Data, &slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return slots, nil
}

func book(client *http.Client, base, provider string, payload bookingPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/providers/%s/bookings", base, provider)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", apiError(resp.StatusCode, env)
	}
	var created struct {
		CancelToken string `json:"cancel_token"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return "", fmt.Errorf("decode appointment: %w", err)
	}
	if created.CancelToken == "" {
		return "", fmt.Errorf("booking response carried no cancel token")
	}
	return created.CancelToken, nil
}

func cancel(client *http.Client, base, token string) error {
	url := fmt.Sprintf("%s/bookings/%s/cancel", base, token)
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return apiError(resp.StatusCode, env)
	}
	return nil
}

func apiError(status int, env envelope) error {
	if env.Error != nil {
		return fmt.Errorf("status %d: %s (%s)", status, env.Error.Message, env.Error.Code)
	}
	return fmt.Errorf("unexpected status %d", status)
}

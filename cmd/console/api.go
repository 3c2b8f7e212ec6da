package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shardfall/journey-engine/pkg/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// apiError decodes an error body into a readable message.
func apiError(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("API returned status %d", resp.StatusCode)
}

func doJSON(client *http.Client, method, url string, reqBody, out any) error {
	var payload io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func startJourney(client *http.Client, baseURL, userID string) (*engine.JourneyResult, error) {
	var result engine.JourneyResult
	url := fmt.Sprintf("%s/v1/journey/%s/start", baseURL, userID)
	if err := doJSON(client, http.MethodPost, url, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func continueJourney(client *http.Client, baseURL, userID string) (*engine.JourneyResult, error) {
	var result engine.JourneyResult
	url := fmt.Sprintf("%s/v1/journey/%s/continue", baseURL, userID)
	if err := doJSON(client, http.MethodPost, url, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func takeChoice(client *http.Client, baseURL, userID, partID string, choice int) (*engine.TurnResult, error) {
	var result engine.TurnResult
	url := fmt.Sprintf("%s/v1/journey/%s/choice", baseURL, userID)
	req := map[string]any{"part_id": partID, "choice": choice}
	if err := doJSON(client, http.MethodPost, url, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func claimDaily(client *http.Client, baseURL, userID string) (*engine.DailyResult, error) {
	var result engine.DailyResult
	url := fmt.Sprintf("%s/v1/player/%s/daily", baseURL, userID)
	if err := doJSON(client, http.MethodPost, url, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func useItem(client *http.Client, baseURL, userID, itemID string) (*engine.UseItemResult, error) {
	var result engine.UseItemResult
	url := fmt.Sprintf("%s/v1/player/%s/items/use", baseURL, userID)
	req := map[string]any{"item_id": itemID}
	if err := doJSON(client, http.MethodPost, url, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func resetProgress(client *http.Client, baseURL, userID string) error {
	url := fmt.Sprintf("%s/v1/player/%s", baseURL, userID)
	return doJSON(client, http.MethodDelete, url, nil, nil)
}

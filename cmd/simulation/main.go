// Simulation client exercising the ledger API end to end: asset creation,
// pool creation, liquidity deposit/withdraw and the staking lifecycle.
// Run against a local server: go run ./cmd/simulation
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naru6be1/PolkaVault/internal/auth"
)

const serverAddress = "http://localhost:8080"

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// simulationClient handles HTTP communication with the ledger API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
	}

	creds := auth.Credentials{
		APIKey:    auth.TestAPIKey,
		APISecret: auth.TestAPISecret,
	}
	var token auth.TokenResponse
	if err := sc.post("/api/v1/auth/token", creds, &token); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	sc.authToken = token.Token

	return sc, nil
}

func (sc *simulationClient) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sc.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+sc.authToken)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unexpected response %d: %s", resp.StatusCode, raw)
	}
	if !envelope.Success {
		if envelope.Error != nil {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func (sc *simulationClient) post(path string, body, out interface{}) error {
	return sc.do(http.MethodPost, path, body, out)
}

func (sc *simulationClient) get(path string, out interface{}) error {
	return sc.do(http.MethodGet, path, nil, out)
}

func (sc *simulationClient) createAsset(name, symbol, supply string) (string, error) {
	var asset struct {
		AssetID string `json:"asset_id"`
	}
	err := sc.post("/api/v1/assets", map[string]interface{}{
		"name":           name,
		"symbol":         symbol,
		"decimals":       10,
		"initial_supply": supply,
		"creator":        "sim-owner",
	}, &asset)
	return asset.AssetID, err
}

func main() {
	log.Info().Msg("starting ledger simulation")

	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise simulation client")
	}

	// Asset boundary
	assetA, err := sc.createAsset("Polka Token", "PLK", "1000000000")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create asset A")
	}
	assetB, err := sc.createAsset("Vault Token", "VLT", "4000000000")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create asset B")
	}
	log.Info().Str("asset_a", assetA).Str("asset_b", assetB).Msg("assets created")

	// Liquidity lifecycle
	var pool struct {
		PoolID string `json:"pool_id"`
	}
	if err := sc.post("/api/v1/internal/pools", map[string]interface{}{
		"asset_a_id":   assetA,
		"asset_b_id":   assetB,
		"fee_rate_bps": 30,
	}, &pool); err != nil {
		log.Fatal().Err(err).Msg("failed to create liquidity pool")
	}

	var deposit struct {
		MintedShares string `json:"minted_shares"`
		Position     struct {
			PositionID string `json:"position_id"`
		} `json:"position"`
	}
	if err := sc.post("/api/v1/pools/"+pool.PoolID+"/deposit", map[string]interface{}{
		"owner_id": "sim-owner",
		"amount_a": "1000000",
		"amount_b": "4000000",
	}, &deposit); err != nil {
		log.Fatal().Err(err).Msg("deposit failed")
	}
	log.Info().
		Str("pool_id", pool.PoolID).
		Str("minted_shares", deposit.MintedShares).
		Msg("liquidity deposited")

	var withdraw struct {
		AmountAOut      string `json:"amount_a_out"`
		AmountBOut      string `json:"amount_b_out"`
		PositionRemoved bool   `json:"position_removed"`
	}
	if err := sc.post("/api/v1/positions/"+deposit.Position.PositionID+"/withdraw", map[string]interface{}{
		"percentage": "0.5",
	}, &withdraw); err != nil {
		log.Fatal().Err(err).Msg("withdrawal failed")
	}
	log.Info().
		Str("amount_a_out", withdraw.AmountAOut).
		Str("amount_b_out", withdraw.AmountBOut).
		Bool("position_removed", withdraw.PositionRemoved).
		Msg("liquidity withdrawn")

	// Staking lifecycle
	var stakingPool struct {
		PoolID string `json:"pool_id"`
	}
	if err := sc.post("/api/v1/internal/staking/pools", map[string]interface{}{
		"asset_id":         assetA,
		"apr_permille":     100,
		"min_stake_amount": "1000",
		"lock_period_days": 0,
	}, &stakingPool); err != nil {
		log.Fatal().Err(err).Msg("failed to create staking pool")
	}

	var stake struct {
		Position struct {
			PositionID string `json:"position_id"`
		} `json:"position"`
	}
	if err := sc.post("/api/v1/staking/pools/"+stakingPool.PoolID+"/stake", map[string]interface{}{
		"owner_id": "sim-owner",
		"amount":   "100000",
	}, &stake); err != nil {
		log.Fatal().Err(err).Msg("stake failed")
	}
	log.Info().Str("position_id", stake.Position.PositionID).Msg("stake accepted")

	// Same-day claim should report nothing to claim.
	if err := sc.post("/api/v1/staking/positions/"+stake.Position.PositionID+"/claim", nil, nil); err != nil {
		log.Info().Err(err).Msg("claim rejected as expected")
	}

	var unstake struct {
		AmountOut       string `json:"amount_out"`
		PositionRemoved bool   `json:"position_removed"`
	}
	if err := sc.post("/api/v1/staking/positions/"+stake.Position.PositionID+"/unstake", map[string]interface{}{
		"amount": "100000",
	}, &unstake); err != nil {
		log.Fatal().Err(err).Msg("unstake failed")
	}
	log.Info().
		Str("amount_out", unstake.AmountOut).
		Bool("position_removed", unstake.PositionRemoved).
		Msg("unstake completed")

	var txns []struct {
		Hash string `json:"hash"`
		Kind string `json:"kind"`
	}
	if err := sc.get("/api/v1/transactions", &txns); err != nil {
		log.Fatal().Err(err).Msg("failed to list transactions")
	}
	log.Info().Int("ledger_entries", len(txns)).Msg("simulation complete")
}

// Package brokerauth performs the login handshake that exchanges account
// credentials for the access token the ticker connection needs. The
// streaming protocol itself has no notion of accounts; this package is the
// out-of-band step that runs once before a Client is built.
package brokerauth

import (
    "bytes"
    "encoding/json"
    "fmt"
    "net/http"
)

// Credentials holds the fields the login endpoint expects. All of them
// normally come from environment variables loaded by config.Load.
type Credentials struct {
    LoginURL   string
    ClientID   string
    ClientPIN  string
    TOTPCode   string
    APIKey     string
    LocalIP    string
    PublicIP   string
    MACAddress string
}

type loginResponse struct {
    Status  bool   `json:"status"`
    Message string `json:"message"`
    Data    struct {
        AccessToken string `json:"jwtToken"`
        FeedToken   string `json:"feedToken"`
    } `json:"data"`
}

// Authenticate logs in with creds and returns the access token to hand to
// ticker.WithAccessToken plus the separate feed token some brokers require
// as an additional header on the streaming connection.
func Authenticate(creds Credentials) (accessToken, feedToken string, err error) {
    payload := map[string]string{
        "clientcode": creds.ClientID,
        "password":   creds.ClientPIN,
        "totp":       creds.TOTPCode,
    }

    body, err := json.Marshal(payload)
    if err != nil {
        return "", "", fmt.Errorf("brokerauth: marshal login payload: %w", err)
    }

    req, err := http.NewRequest(http.MethodPost, creds.LoginURL, bytes.NewReader(body))
    if err != nil {
        return "", "", fmt.Errorf("brokerauth: build login request: %w", err)
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("Accept", "application/json")
    req.Header.Set("X-UserType", "USER")
    req.Header.Set("X-SourceID", "WEB")
    req.Header.Set("X-ClientLocalIP", creds.LocalIP)
    req.Header.Set("X-ClientPublicIP", creds.PublicIP)
    req.Header.Set("X-MACAddress", creds.MACAddress)
    req.Header.Set("X-PrivateKey", creds.APIKey)

    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        return "", "", fmt.Errorf("brokerauth: send login request: %w", err)
    }
    defer resp.Body.Close()

    var lr loginResponse
    if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
        return "", "", fmt.Errorf("brokerauth: decode login response: %w", err)
    }
    if !lr.Status {
        return "", "", fmt.Errorf("brokerauth: login rejected: %s", lr.Message)
    }
    return lr.Data.AccessToken, lr.Data.FeedToken, nil
}

/*
Copyright 2026. Physnet Ops, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// operationRequest is the wire form of one device operation.
type operationRequest struct {
	Operation    string                 `json:"operation"`
	SwitchPort   string                 `json:"switch_port,omitempty"`
	VlanID       int                    `json:"vlan_id,omitempty"`
	TrunkedVlans []int                  `json:"trunked_vlans,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
}

// apiResponse is the automation service's reply envelope.
type apiResponse struct {
	IsSuccess bool   `json:"is_success"`
	Message   string `json:"message"`
}

// Client is the HTTP client for the device automation service.
type Client struct {
	address    string
	token      string
	client     *http.Client
	log        *logrus.Logger
	maxRetries uint64
}

// NewClient builds a Client for the automation service at address.
// timeout bounds each HTTP attempt in seconds.
func NewClient(address, token string, timeout int) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("{NewClient} %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("{NewClient} invalid address %q", address)
	}
	if timeout <= 0 {
		timeout = 60
	}
	return &Client{
		address:    u.String(),
		token:      token,
		client:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		log:        logrus.New(),
		maxRetries: 4,
	}, nil
}

// InsecureVerify disables TLS certificate verification.
func (c *Client) InsecureVerify(insecure bool) {
	c.client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
	}
}

// SetDebug raises the transport log level.
func (c *Client) SetDebug(debug bool) {
	if debug {
		c.log.SetLevel(logrus.DebugLevel)
	} else {
		c.log.SetLevel(logrus.InfoLevel)
	}
}

// HasHost reports whether the automation service inventory knows the
// switch. Lookup failures count as unknown.
func (c *Client) HasHost(ctx context.Context, switchName string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/hosts/%s", c.address, url.PathEscape(switchName)), nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.WithError(err).Warnf("host lookup failed for %s", switchName)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// CreateVLAN .
func (c *Client) CreateVLAN(ctx context.Context, switchName string, vlanID int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpCreateVLAN, VlanID: vlanID, Params: params})
}

// DeleteVLAN .
func (c *Client) DeleteVLAN(ctx context.Context, switchName string, vlanID int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpDeleteVLAN, VlanID: vlanID, Params: params})
}

// ConfAccessPort .
func (c *Client) ConfAccessPort(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpConfAccessPort, SwitchPort: switchPort, VlanID: vlanID, Params: params})
}

// ConfTrunkPort .
func (c *Client) ConfTrunkPort(ctx context.Context, switchName, switchPort string, nativeVLAN int, trunkedVLANs []int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{
		Operation:    OpConfTrunkPort,
		SwitchPort:   switchPort,
		VlanID:       nativeVLAN,
		TrunkedVlans: trunkedVLANs,
		Params:       params,
	})
}

// AddTrunkVLAN .
func (c *Client) AddTrunkVLAN(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpAddTrunkVLAN, SwitchPort: switchPort, VlanID: vlanID, Params: params})
}

// DeleteTrunkVLAN .
func (c *Client) DeleteTrunkVLAN(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpDeleteTrunkVLAN, SwitchPort: switchPort, VlanID: vlanID, Params: params})
}

// DeletePort .
func (c *Client) DeletePort(ctx context.Context, switchName, switchPort string, params map[string]interface{}) error {
	return c.run(ctx, switchName, operationRequest{Operation: OpDeletePort, SwitchPort: switchPort, Params: params})
}

// run posts one operation, retrying transport failures and server
// errors with exponential backoff. Rejections from the service come
// back as-is; retrying a device-level failure is the caller's call.
func (c *Client) run(ctx context.Context, switchName string, op operationRequest) error {
	body, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("{run} %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1/hosts/%s/operations", c.address, url.PathEscape(switchName))
	requestID := uuid.New().String()

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		c.setHeaders(req)
		req.Header.Set("X-Request-Id", requestID)

		c.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"switch":     switchName,
			"operation":  op.Operation,
		}).Debugf("posting operation")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s returned %d", op.Operation, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("%s returned %d: %s", op.Operation, resp.StatusCode, data))
		}

		var reply apiResponse
		if err := json.Unmarshal(data, &reply); err != nil {
			return backoff.Permanent(fmt.Errorf("{run} decoding reply: %w", err))
		}
		if !reply.IsSuccess {
			return backoff.Permanent(fmt.Errorf("%s failed on %s: %s", op.Operation, switchName, reply.Message))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		c.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"switch":     switchName,
			"operation":  op.Operation,
		}).WithError(err).Error("operation failed")
		return err
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

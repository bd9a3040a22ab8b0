// Package imagestore stores acknowledgment photos and avatars in Cloudinary.
package imagestore

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

const (
	defaultAPIBase  = "https://api.cloudinary.com/v1_1"
	deliveryHost    = "res.cloudinary.com"
	destroyResultOK = "ok"
)

var versionSegment = regexp.MustCompile(`^v\d+$`)

// Store uploads images and deletes them by their delivery URL.
type Store interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
	Delete(ctx context.Context, imageURL string) (bool, error)
}

// Config contains Cloudinary credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	// APIBase overrides the upload API endpoint. Empty means the public API.
	APIBase string
	Timeout time.Duration
}

// Cloudinary implements Store against the Cloudinary upload API.
type Cloudinary struct {
	cfg    Config
	client *resty.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewCloudinary constructs a Cloudinary client.
func NewCloudinary(cfg Config, logger *slog.Logger) *Cloudinary {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetTimeout(cfg.Timeout)
	return &Cloudinary{cfg: cfg, client: client, logger: logger, now: time.Now}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type destroyResponse struct {
	Result string `json:"result"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Store uploads data under a unique public id derived from name and returns
// the secure delivery URL.
func (c *Cloudinary) Store(ctx context.Context, data []byte, name string) (string, error) {
	if !c.configured() {
		return "", fmt.Errorf("%w: image store not configured", httpx.ErrDependency)
	}
	params := map[string]string{
		"public_id": c.publicID(name),
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	form := c.signedForm(params)

	var out uploadResponse
	var failure apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetFileReader("file", path.Base(name), bytes.NewReader(data)).
		SetResult(&out).
		SetError(&failure).
		Post("/" + url.PathEscape(c.cfg.CloudName) + "/image/upload")
	if err != nil {
		return "", fmt.Errorf("%w: cloudinary upload: %v", httpx.ErrDependency, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: cloudinary upload: %s", httpx.ErrDependency, failureMessage(resp, failure))
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: cloudinary upload returned no url", httpx.ErrDependency)
	}
	return out.SecureURL, nil
}

// Delete removes the image behind imageURL. It reports false without error
// when the URL does not belong to the configured cloud.
func (c *Cloudinary) Delete(ctx context.Context, imageURL string) (bool, error) {
	publicID, ok := PublicIDFromURL(imageURL, c.cfg.CloudName)
	if !ok {
		return false, nil
	}
	if !c.configured() {
		return false, fmt.Errorf("%w: image store not configured", httpx.ErrDependency)
	}
	form := c.signedForm(map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	})

	var out destroyResponse
	var failure apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&out).
		SetError(&failure).
		Post("/" + url.PathEscape(c.cfg.CloudName) + "/image/destroy")
	if err != nil {
		return false, fmt.Errorf("%w: cloudinary destroy: %v", httpx.ErrDependency, err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("%w: cloudinary destroy: %s", httpx.ErrDependency, failureMessage(resp, failure))
	}
	if out.Result != destroyResultOK {
		if c.logger != nil {
			c.logger.Warn("cloudinary destroy not applied", slog.String("public_id", publicID), slog.String("result", out.Result))
		}
		return false, nil
	}
	return true, nil
}

func (c *Cloudinary) configured() bool {
	return c.cfg.CloudName != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

func (c *Cloudinary) publicID(name string) string {
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	stem = sanitize(stem)
	if stem == "" {
		stem = "image"
	}
	id := stem + "_" + uuid.NewString()
	if folder := strings.Trim(c.cfg.Folder, "/"); folder != "" {
		id = folder + "/" + id
	}
	return id
}

func (c *Cloudinary) signedForm(params map[string]string) map[string]string {
	form := make(map[string]string, len(params)+2)
	for k, v := range params {
		form[k] = v
	}
	form["signature"] = Sign(params, c.cfg.APISecret)
	form["api_key"] = c.cfg.APIKey
	return form
}

// Sign computes the Cloudinary request signature: the sha1 hex digest of the
// parameters sorted by name and joined as k=v pairs with &, followed by the secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// PublicIDFromURL extracts the public id from a Cloudinary delivery URL for
// cloudName. It returns false for URLs hosted elsewhere.
func PublicIDFromURL(imageURL, cloudName string) (string, bool) {
	if cloudName == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || !strings.EqualFold(u.Host, deliveryHost) {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// cloud/image/upload/[v123/]folder/name.ext
	if len(segments) < 4 || segments[0] != cloudName || segments[1] != "image" || segments[2] != "upload" {
		return "", false
	}
	rest := segments[3:]
	if versionSegment.MatchString(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return "", false
	}
	id := strings.Join(rest, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", false
	}
	return id, true
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	return b.String()
}

func failureMessage(resp *resty.Response, failure apiError) string {
	if failure.Error.Message != "" {
		return failure.Error.Message
	}
	return resp.Status()
}

var _ Store = (*Cloudinary)(nil)

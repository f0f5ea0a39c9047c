package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ruteri/canary-registry/interfaces"
)

// ErrPackageNotFound is returned by a PackageSource that has no bytecode for
// the requested package.
var ErrPackageNotFound = errors.New("package not found")

// PackageSource fetches the bytecode of a published package.
type PackageSource interface {
	FetchPackage(ctx context.Context, packageID interfaces.Address) ([]byte, error)
}

// Decompiler turns package bytecode into readable source.
type Decompiler interface {
	Decompile(ctx context.Context, bytecode []byte) ([]byte, error)
}

// Explainer produces a human readable description of decompiled source.
type Explainer interface {
	Explain(ctx context.Context, domain string, packageID interfaces.Address, source []byte) ([]byte, error)
}

const maxResponseBytes = 64 << 20

// HTTPPackageSource fetches bytecode from GET {BaseURL}/packages/{id}.
type HTTPPackageSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPPackageSource(baseURL string, timeout time.Duration) *HTTPPackageSource {
	return &HTTPPackageSource{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPPackageSource) FetchPackage(ctx context.Context, packageID interfaces.Address) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/packages/"+packageID.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch package %s: %w", packageID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, packageID)
	default:
		return nil, fmt.Errorf("fetch package %s: unexpected status %d", packageID, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// ExecDecompiler runs an external decompiler binary. The bytecode is written
// to a temporary file passed as the last argument; the source is read from
// the process stdout.
type ExecDecompiler struct {
	Path string
	Args []string
}

func (d *ExecDecompiler) Decompile(ctx context.Context, bytecode []byte) ([]byte, error) {
	f, err := os.CreateTemp("", "canary-package-*.mv")
	if err != nil {
		return nil, fmt.Errorf("create bytecode file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(bytecode); err != nil {
		f.Close()
		return nil, fmt.Errorf("write bytecode file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write bytecode file: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Path, append(append([]string{}, d.Args...), f.Name())...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("decompiler %s: %w: %s", d.Path, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("decompiler %s produced no output", d.Path)
	}
	return stdout.Bytes(), nil
}

type explainRequest struct {
	Domain    string             `json:"domain"`
	PackageID interfaces.Address `json:"package_id"`
	Source    string             `json:"source"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// HTTPExplainer posts decompiled source to an analysis service.
type HTTPExplainer struct {
	URL    string
	Client *http.Client
}

func NewHTTPExplainer(url string, timeout time.Duration) *HTTPExplainer {
	return &HTTPExplainer{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExplainer) Explain(ctx context.Context, domain string, packageID interfaces.Address, source []byte) ([]byte, error) {
	body, err := json.Marshal(explainRequest{Domain: domain, PackageID: packageID, Source: string(source)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explain %s: %w", packageID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("explain %s: status %d: %s", packageID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out explainResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode explanation: %w", err)
	}
	if out.Explanation == "" {
		return nil, fmt.Errorf("explain %s: empty explanation", packageID)
	}
	return []byte(out.Explanation), nil
}

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Tejaspatil1175/codecore-backend/internal/platform/timeouts"
)

// DefaultPistonURL is the public Piston endpoint.
const DefaultPistonURL = "https://emkc.org/api/v2/piston"

const (
	compileTimeoutMillis = 10_000
	runTimeoutMillis     = 5_000
)

type runtimeSpec struct {
	language string
	version  string
	filename string
}

// runtimes pins each supported language to a known Piston version.
var runtimes = map[string]runtimeSpec{
	"c":          {language: "c", version: "10.2.0", filename: "main.c"},
	"cpp":        {language: "cpp", version: "10.2.0", filename: "main.cpp"},
	"python":     {language: "python", version: "3.10.0", filename: "main.py"},
	"java":       {language: "java", version: "15.0.2", filename: "Main.java"},
	"javascript": {language: "javascript", version: "18.15.0", filename: "main.js"},
}

// SupportedLanguage reports whether a language has a pinned runtime.
func SupportedLanguage(language string) bool {
	_, ok := runtimes[strings.ToLower(strings.TrimSpace(language))]
	return ok
}

// PistonClient executes code through a Piston-compatible HTTP API.
type PistonClient struct {
	baseURL string
	client  *http.Client
}

// NewPistonClient builds a client for the given base URL. An empty URL
// selects the public endpoint.
func NewPistonClient(baseURL string, client *http.Client) *PistonClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultPistonURL
	}
	if client == nil {
		client = &http.Client{Timeout: timeouts.ExecutorRequest}
	}
	return &PistonClient{baseURL: baseURL, client: client}
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language       string       `json:"language"`
	Version        string       `json:"version"`
	Files          []pistonFile `json:"files"`
	Stdin          string       `json:"stdin"`
	CompileTimeout int          `json:"compile_timeout"`
	RunTimeout     int          `json:"run_timeout"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Compile *pistonStage `json:"compile"`
	Run     pistonStage  `json:"run"`
	Message string       `json:"message"`
}

// Execute runs one program. Compile, runtime, timeout, and transport
// failures are reported in the Execution status; an error return means the
// input itself was invalid.
func (c *PistonClient) Execute(ctx context.Context, input ExecuteInput) (Execution, error) {
	rt, ok := runtimes[strings.ToLower(strings.TrimSpace(input.Language))]
	if !ok {
		return Execution{}, fmt.Errorf("unsupported language %q", input.Language)
	}
	if strings.TrimSpace(input.Source) == "" {
		return Execution{}, fmt.Errorf("source code is required")
	}

	body, err := json.Marshal(pistonRequest{
		Language:       rt.language,
		Version:        rt.version,
		Files:          []pistonFile{{Name: rt.filename, Content: input.Source}},
		Stdin:          input.Stdin,
		CompileTimeout: compileTimeoutMillis,
		RunTimeout:     runTimeoutMillis,
	})
	if err != nil {
		return Execution{}, fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return Execution{}, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		status := StatusTransportError
		if errors.Is(err, context.DeadlineExceeded) {
			status = StatusTimeout
		}
		return Execution{Status: status, Detail: err.Error()}, nil
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			detail = []byte(readErr.Error())
		}
		return Execution{
			Status: StatusTransportError,
			Detail: fmt.Sprintf("execute status %d: %s", res.StatusCode, strings.TrimSpace(string(detail))),
		}, nil
	}

	var payload pistonResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Execution{Status: StatusTransportError, Detail: fmt.Sprintf("decode execute response: %v", err)}, nil
	}
	return classify(payload), nil
}

func classify(payload pistonResponse) Execution {
	if payload.Compile != nil && payload.Compile.Code != nil && *payload.Compile.Code != 0 {
		detail := strings.TrimSpace(payload.Compile.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(payload.Compile.Output)
		}
		return Execution{Status: StatusCompileError, Stderr: payload.Compile.Stderr, Detail: detail}
	}
	run := payload.Run
	if run.Signal != nil && *run.Signal != "" {
		status := StatusRuntimeError
		if *run.Signal == "SIGKILL" {
			status = StatusTimeout
		}
		detail := strings.TrimSpace(run.Stderr)
		if detail == "" {
			detail = "terminated by signal " + *run.Signal
		}
		return Execution{Status: status, Stdout: run.Stdout, Stderr: run.Stderr, Detail: detail}
	}
	if run.Code != nil && *run.Code != 0 {
		detail := strings.TrimSpace(run.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exited with code %d", *run.Code)
		}
		return Execution{Status: StatusRuntimeError, Stdout: run.Stdout, Stderr: run.Stderr, Detail: detail}
	}
	return Execution{Status: StatusOK, Stdout: run.Stdout, Stderr: run.Stderr}
}

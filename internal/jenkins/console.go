package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// timeoutMarker is appended to the accumulated output when the
// streaming budget runs out before the build finishes.
const timeoutMarker = "\n[TIMEOUT: Job took too long to complete or there was an error accessing the build]"

// BuildInfo is the subset of the Jenkins build record the coordinator
// needs: whether it is still running, its result and its duration in
// milliseconds.
type BuildInfo struct {
	Number         int64  `json:"number"`
	Building       bool   `json:"building"`
	Result         string `json:"result"`
	DurationMillis int64  `json:"duration"`
}

// StreamResult carries the console output accumulated by StreamConsole.
// Status is the Jenkins result string on completion, "TIMEOUT" when the
// poll budget ran out and "ERROR" when streaming could not start.
// Complete is true only when the build finished within the budget.
type StreamResult struct {
	JobName       string
	BuildNumber   int64
	Status        string
	ConsoleOutput string
	Complete      bool
}

// GetBuildInfo fetches the build record for one build of a job.
func (c *Client) GetBuildInfo(ctx context.Context, jobName string, buildNumber int64) (*BuildInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d/api/json", jobPath(jobName), buildNumber), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("build info for %s #%d returned status %d", jobName, buildNumber, resp.StatusCode)
	}

	var info BuildInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding build info for %s #%d: %w", jobName, buildNumber, err)
	}
	return &info, nil
}

// consoleText fetches the full console blob for a build.
func (c *Client) consoleText(ctx context.Context, jobName string, buildNumber int64) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d/consoleText", jobPath(jobName), buildNumber), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("console for %s #%d returned status %d", jobName, buildNumber, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading console for %s #%d: %w", jobName, buildNumber, err)
	}
	return string(data), nil
}

// StreamConsole follows a build's console output until it finishes or
// the poll budget is spent. The console API is append-only by byte
// offset with no native follow mechanism, so each poll fetches the full
// blob and keeps the suffix beyond the previous offset. Individual HTTP
// errors are absorbed; only the iteration budget ends the loop.
func (c *Client) StreamConsole(ctx context.Context, jobName string, buildNumber int64) *StreamResult {
	var chunks strings.Builder
	offset := 0

	appendNewOutput := func() {
		full, err := c.consoleText(ctx, jobName, buildNumber)
		if err != nil {
			return
		}
		if len(full) > offset {
			chunks.WriteString(full[offset:])
			offset = len(full)
		}
	}

	for poll := 0; poll < c.timing.StreamMaxPolls; poll++ {
		info, err := c.GetBuildInfo(ctx, jobName, buildNumber)
		if err != nil {
			if sleepErr := sleepCtx(ctx, c.timing.StreamPollInterval); sleepErr != nil {
				break
			}
			continue
		}

		if !info.Building {
			appendNewOutput()
			status := info.Result
			if status == "" {
				status = "UNKNOWN"
			}
			return &StreamResult{
				JobName:       jobName,
				BuildNumber:   buildNumber,
				Status:        status,
				ConsoleOutput: chunks.String(),
				Complete:      true,
			}
		}

		appendNewOutput()
		if err := sleepCtx(ctx, c.timing.StreamPollInterval); err != nil {
			break
		}
	}

	return &StreamResult{
		JobName:       jobName,
		BuildNumber:   buildNumber,
		Status:        "TIMEOUT",
		ConsoleOutput: chunks.String() + timeoutMarker,
		Complete:      false,
	}
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

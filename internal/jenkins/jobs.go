package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avast/retry-go/v4"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// StartResult reports the outcome of a build trigger. Status is
// "started" when the queue item resolved to a build number, "queued"
// when the poll budget ran out first and "error" for anything that
// prevented the trigger (a missing job, a wire failure). Errors are
// carried in the record, not raised.
type StartResult struct {
	Status      string
	QueueNumber int64
	BuildNumber int64
	JobName     string
	Error       string
	Message     string
}

// JobExists reports whether a job is present on the server.
func (c *Client) JobExists(ctx context.Context, jobName string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, jobPath(jobName)+"/api/json", nil, "")
	if err != nil {
		return false, api.NewJenkinsError("job lookup", c.serverName, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, api.NewJenkinsError("job lookup", c.serverName,
			fmt.Errorf("job %s lookup returned status %d", jobName, resp.StatusCode))
	}
}

// DeleteJobIfExists removes a job when present and reports whether
// anything was removed. A missing job is not an error.
func (c *Client) DeleteJobIfExists(ctx context.Context, jobName string) (bool, error) {
	exists, err := c.JobExists(ctx, jobName)
	if err != nil {
		return false, err
	}
	if !exists {
		logging.Debug("Jenkins", "Job %s does not exist, nothing to delete", jobName)
		return false, nil
	}

	resp, err := c.do(ctx, http.MethodPost, jobPath(jobName)+"/doDelete", nil, "")
	if err != nil {
		return false, api.NewJenkinsError("delete job", c.serverName, err)
	}
	defer drain(resp)

	// Jenkins answers the delete with a redirect to the parent view.
	if resp.StatusCode >= http.StatusBadRequest {
		return false, api.NewJenkinsError("delete job", c.serverName,
			fmt.Errorf("deleting job %s returned status %d", jobName, resp.StatusCode))
	}

	logging.Info("Jenkins", "Deleted job %s", jobName)
	return true, nil
}

// CreateJob creates a pipeline job whose definition is the given
// Jenkinsfile text, wrapped in a sandboxed CpsFlowDefinition config
// document.
func (c *Client) CreateJob(ctx context.Context, jobName, jenkinsfileText string) error {
	body := strings.NewReader(jobConfigXML(jenkinsfileText))
	resp, err := c.do(ctx, http.MethodPost, "/createItem?name="+url.QueryEscape(jobName), body, "application/xml")
	if err != nil {
		return api.NewJenkinsError("create job", c.serverName, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return api.NewJenkinsError("create job", c.serverName,
			fmt.Errorf("creating job %s returned status %d", jobName, resp.StatusCode))
	}

	logging.Info("Jenkins", "Created job %s", jobName)
	return nil
}

// StartJob triggers a build and polls the queue item until it resolves
// to a build number or the poll budget runs out. Trigger failures come
// back as a structured error result.
func (c *Client) StartJob(ctx context.Context, jobName string, parameters map[string]interface{}) *StartResult {
	exists, err := c.JobExists(ctx, jobName)
	if err != nil {
		return &StartResult{Status: "error", JobName: jobName, Error: err.Error()}
	}
	if !exists {
		logging.Error("Jenkins", nil, "Job %s does not exist", jobName)
		return &StartResult{
			Status:  "error",
			JobName: jobName,
			Error:   fmt.Sprintf("Job %s does not exist", jobName),
		}
	}

	queueNumber, err := c.triggerBuild(ctx, jobName, parameters)
	if err != nil {
		logging.Error("Jenkins", err, "Could not start job %s", jobName)
		return &StartResult{
			Status:  "error",
			JobName: jobName,
			Error:   fmt.Sprintf("Error starting job: %v", err),
		}
	}
	logging.Info("Jenkins", "Job %s build started, queue number %d", jobName, queueNumber)

	buildNumber, err := c.resolveQueueItem(ctx, queueNumber)
	if err != nil {
		logging.Info("Jenkins", "Job %s is still queued after the waiting period", jobName)
		return &StartResult{
			Status:      "queued",
			JobName:     jobName,
			QueueNumber: queueNumber,
			Message:     "Job is still in queue after waiting period",
		}
	}

	logging.Info("Jenkins", "Job %s is building, build number %d", jobName, buildNumber)
	return &StartResult{
		Status:      "started",
		JobName:     jobName,
		QueueNumber: queueNumber,
		BuildNumber: buildNumber,
	}
}

// triggerBuild posts the build request and parses the queue item id
// from the Location header.
func (c *Client) triggerBuild(ctx context.Context, jobName string, parameters map[string]interface{}) (int64, error) {
	path := jobPath(jobName) + "/build"
	var body *strings.Reader
	contentType := ""
	if len(parameters) > 0 {
		path = jobPath(jobName) + "/buildWithParameters"
		form := url.Values{}
		for name, value := range parameters {
			form.Set(name, fmt.Sprint(value))
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		body = strings.NewReader("")
	}

	resp, err := c.do(ctx, http.MethodPost, path, body, contentType)
	if err != nil {
		return 0, api.NewJenkinsError("start job", c.serverName, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return 0, api.NewJenkinsError("start job", c.serverName,
			fmt.Errorf("build trigger returned status %d", resp.StatusCode))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return 0, api.NewJenkinsError("start job", c.serverName,
			errors.New("no Location header in build trigger response"))
	}
	return parseQueueNumber(location)
}

// parseQueueNumber extracts the numeric queue item id from the
// Location header of a build trigger response
// (e.g. http://host/queue/item/42/).
func parseQueueNumber(location string) (int64, error) {
	trimmed := strings.TrimRight(location, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0, fmt.Errorf("unparseable queue location %q", location)
	}
	number, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable queue location %q: %w", location, err)
	}
	return number, nil
}

var errStillQueued = errors.New("queue item has no executable yet")

// resolveQueueItem polls the queue item at a fixed interval until it
// carries an executable build number or the attempt budget is spent.
func (c *Client) resolveQueueItem(ctx context.Context, queueNumber int64) (int64, error) {
	return retry.DoWithData(
		func() (int64, error) {
			number, err := c.queueExecutable(ctx, queueNumber)
			if err != nil {
				logging.Warn("Jenkins", "Error checking queue item %d: %v", queueNumber, err)
				return 0, err
			}
			if number == 0 {
				logging.Debug("Jenkins", "Queue item %d has not started yet", queueNumber)
				return 0, errStillQueued
			}
			return number, nil
		},
		retry.Attempts(c.timing.QueuePollAttempts),
		retry.Delay(c.timing.QueuePollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// queueExecutable fetches one queue item and returns its build number,
// or zero while the item is still waiting.
func (c *Client) queueExecutable(ctx context.Context, queueNumber int64) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/queue/item/%d/api/json", queueNumber), nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("queue item %d lookup returned status %d", queueNumber, resp.StatusCode)
	}

	var item struct {
		Executable *struct {
			Number int64 `json:"number"`
		} `json:"executable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return 0, fmt.Errorf("decoding queue item %d: %w", queueNumber, err)
	}
	if item.Executable == nil {
		return 0, nil
	}
	return item.Executable.Number, nil
}

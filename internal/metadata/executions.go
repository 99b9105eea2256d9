package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// RecordDeployment writes a Deployment record for a template that is
// already registered. The hash, the template membership set and the
// (server, job) lookup are written as one pipelined batch. Redeploying
// the same job replaces the lookup entry.
func (s *Store) RecordDeployment(ctx context.Context, templateName, jobName, serverName string) (*api.DeploymentRecord, error) {
	template, err := s.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}

	record := &api.DeploymentRecord{
		ID:              uuid.New().String(),
		TemplateName:    templateName,
		TemplateVersion: template.Version,
		JenkinsJobName:  jobName,
		ServerName:      serverName,
		DeployedAt:      nowISO(),
		Status:          "deployed",
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, deploymentKey(record.ID), deploymentToHash(record))
	pipe.SAdd(ctx, templateDeploymentsKey(templateName), record.ID)
	pipe.Set(ctx, jobIndexKey(serverName, jobName), record.ID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, api.NewStoreError("record deployment", err)
	}

	logging.Info("Metadata", "Deployed %s as job %s on %s", templateName, jobName, serverName)
	return record, nil
}

// RecordExecution creates a new Execution in status running and indexes
// it. The primary hash write is verified and retried once as a pipelined
// batch; index writes are individually guarded so a single failure never
// aborts the recording. A failed primary write is reported through
// MetadataUpdated=false, not an error, because the caller still needs
// the execution id.
func (s *Store) RecordExecution(ctx context.Context, start api.ExecutionStart) (*api.ExecutionRecord, error) {
	deploymentID := start.DeploymentID
	if deploymentID == "" && start.TemplateName != "" && start.JenkinsJobName != "" && start.ServerName != "" {
		resolved, err := s.rdb.Get(ctx, jobIndexKey(start.ServerName, start.JenkinsJobName)).Result()
		switch {
		case err == nil:
			deploymentID = resolved
		case errors.Is(err, redis.Nil):
			// job was never deployed through us
		default:
			logging.Warn("Metadata", "Could not resolve deployment for %s/%s: %v", start.ServerName, start.JenkinsJobName, err)
		}
	}

	record := &api.ExecutionRecord{
		ID:              uuid.New().String(),
		DeploymentID:    deploymentID,
		TemplateName:    start.TemplateName,
		JenkinsJobName:  start.JenkinsJobName,
		ServerName:      start.ServerName,
		BuildNumber:     start.BuildNumber,
		Parameters:      start.Parameters,
		StartedAt:       nowISO(),
		Status:          api.StatusRunning,
		MetadataUpdated: true,
	}
	if record.Parameters == nil {
		record.Parameters = map[string]interface{}{}
	}

	key := executionKey(record.ID)
	if err := s.writeExecutionHash(ctx, key, executionToHash(record)); err != nil {
		logging.Error("Metadata", err, "Could not persist execution %s", record.ID)
		record.MetadataUpdated = false
	}

	s.indexExecution(ctx, record, nowScore())

	logging.Info("Metadata", "Recorded execution %s for job %s build %q", record.ID, record.JenkinsJobName, record.BuildNumber)
	return record, nil
}

// writeExecutionHash clears any stale hash, writes the new one and
// verifies it landed. On a failed verification the write is retried
// once as a pipelined batch.
func (s *Store) writeExecutionHash(ctx context.Context, key string, fields map[string]interface{}) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logging.Warn("Metadata", "Could not clear %s before writing: %v", key, err)
	}

	if err := s.rdb.HSet(ctx, key, fields).Err(); err == nil {
		if exists, err := s.rdb.Exists(ctx, key).Result(); err == nil && exists > 0 {
			return nil
		}
	}

	logging.Warn("Metadata", "Write to %s did not verify, retrying as a pipelined batch", key)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("hash %s still missing after pipelined retry", key)
	}
	return nil
}

// indexExecution adds the execution to the global, per-template and
// per-job time indices plus its status set. Each write is guarded on
// its own.
func (s *Store) indexExecution(ctx context.Context, record *api.ExecutionRecord, score float64) {
	if err := s.rdb.ZAdd(ctx, executionsKey, redis.Z{Score: score, Member: record.ID}).Err(); err != nil {
		logging.Warn("Metadata", "Could not index execution %s globally: %v", record.ID, err)
	}
	if record.TemplateName != "" {
		if err := s.rdb.ZAdd(ctx, templateExecutionsKey(record.TemplateName), redis.Z{Score: score, Member: record.ID}).Err(); err != nil {
			logging.Warn("Metadata", "Could not index execution %s for template %s: %v", record.ID, record.TemplateName, err)
		}
	}
	if record.JenkinsJobName != "" && record.ServerName != "" {
		if err := s.rdb.ZAdd(ctx, jobExecutionsKey(record.ServerName, record.JenkinsJobName), redis.Z{Score: score, Member: record.ID}).Err(); err != nil {
			logging.Warn("Metadata", "Could not index execution %s for job %s: %v", record.ID, record.JenkinsJobName, err)
		}
	}
	if err := s.rdb.SAdd(ctx, statusKey(record.Status), record.ID).Err(); err != nil {
		logging.Warn("Metadata", "Could not add execution %s to status set %s: %v", record.ID, record.Status, err)
	}
}

// UpdateExecutionStatus applies a status transition. A missing record is
// replaced by a minimal placeholder so late updates from a recovered run
// are never lost. Console output, when present, is written before the
// hash update and also spilled to the filesystem fallback.
func (s *Store) UpdateExecutionStatus(ctx context.Context, executionID string, update api.ExecutionUpdate) (*api.ExecutionRecord, error) {
	key := executionKey(executionID)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, api.NewStoreError("update execution status", err)
	}
	if exists == 0 {
		logging.Warn("Metadata", "Execution %s not found, creating a minimal record", executionID)
		if err := s.rdb.HSet(ctx, key, map[string]interface{}{
			"id":         executionID,
			"status":     api.StatusUnknown,
			"started_at": nowISO(),
		}).Err(); err != nil {
			return nil, api.NewStoreError("update execution status", err)
		}
	}

	current, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, api.NewStoreError("update execution status", err)
	}
	oldStatus := current["status"]

	fields := map[string]interface{}{"status": update.Status}
	if update.Result != "" {
		fields["result"] = update.Result
	}
	if update.DurationMillis > 0 {
		fields["duration"] = strconv.FormatInt(update.DurationMillis, 10)
	}
	if update.Status == api.StatusComplete || update.Status == api.StatusFailed {
		fields["finished_at"] = nowISO()
	}

	if update.ConsoleOutput != "" {
		if s.storeConsole(ctx, executionID, update.ConsoleOutput) {
			fields["console_stored"] = "true"
		}
		s.spillConsole(executionID, update.ConsoleOutput)
	}

	if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
		logging.Error("Metadata", err, "Could not update execution %s", executionID)
		record := executionFromHash(executionID, mergeHashFields(current, fields))
		record.MetadataUpdated = false
		return record, nil
	}

	if update.Status != oldStatus {
		if err := s.rdb.ZAdd(ctx, executionsKey, redis.Z{Score: nowScore(), Member: executionID}).Err(); err != nil {
			logging.Warn("Metadata", "Could not refresh global index for %s: %v", executionID, err)
		}
		if oldStatus != "" {
			if err := s.rdb.SRem(ctx, statusKey(oldStatus), executionID).Err(); err != nil {
				logging.Warn("Metadata", "Could not remove %s from status set %s: %v", executionID, oldStatus, err)
			}
		}
		if err := s.rdb.SAdd(ctx, statusKey(update.Status), executionID).Err(); err != nil {
			logging.Warn("Metadata", "Could not add %s to status set %s: %v", executionID, update.Status, err)
		}
	}

	updated, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logging.Error("Metadata", err, "Could not read back execution %s", executionID)
		record := executionFromHash(executionID, mergeHashFields(current, fields))
		record.MetadataUpdated = false
		return record, nil
	}

	score := nowScore()
	if templateName := updated["template_name"]; templateName != "" {
		if err := s.rdb.ZAdd(ctx, templateExecutionsKey(templateName), redis.Z{Score: score, Member: executionID}).Err(); err != nil {
			logging.Warn("Metadata", "Could not refresh template index for %s: %v", executionID, err)
		}
	}
	if jobName, serverName := updated["jenkins_job_name"], updated["server_name"]; jobName != "" && serverName != "" {
		if err := s.rdb.ZAdd(ctx, jobExecutionsKey(serverName, jobName), redis.Z{Score: score, Member: executionID}).Err(); err != nil {
			logging.Warn("Metadata", "Could not refresh job index for %s: %v", executionID, err)
		}
	}

	logging.Info("Metadata", "Execution %s is now %s (%s)", executionID, update.Status, update.Result)
	return executionFromHash(executionID, updated), nil
}

// GetExecution loads an execution together with its console output. A
// missing record is recovered from the console spill file when one
// exists; a missing console blob is likewise recovered and repopulated
// into the store.
func (s *Store) GetExecution(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	fields, err := s.rdb.HGetAll(ctx, executionKey(executionID)).Result()
	if err != nil {
		return nil, api.NewStoreError("get execution", err)
	}
	if len(fields) == 0 {
		return s.recoverExecutionFromFile(ctx, executionID)
	}

	record := executionFromHash(executionID, fields)

	console, err := s.rdb.Get(ctx, consoleKey(executionID)).Result()
	switch {
	case err == nil:
		record.ConsoleOutput = console
	case errors.Is(err, redis.Nil):
		if content, ok := s.readConsoleFile(executionID); ok {
			record.ConsoleOutput = content
			if err := s.rdb.Set(ctx, consoleKey(executionID), content, 0).Err(); err != nil {
				logging.Warn("Metadata", "Could not repopulate console output for %s: %v", executionID, err)
			} else {
				record.ConsoleStored = true
				logging.Info("Metadata", "Recovered console output for %s from the spill file", executionID)
			}
		} else if record.ConsoleStored {
			record.ConsoleOutput = consoleUnavailableMsg
		}
	default:
		logging.Warn("Metadata", "Could not load console output for %s: %v", executionID, err)
	}

	return record, nil
}

// recoverExecutionFromFile synthesizes a minimal record from the console
// spill file. The terminal status is inferred from the Jenkins result
// line when present.
func (s *Store) recoverExecutionFromFile(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	content, ok := s.readConsoleFile(executionID)
	if !ok {
		return nil, api.NewExecutionNotFoundError(executionID)
	}
	logging.Info("Metadata", "Recovered execution %s from the console spill file", executionID)

	status, result := inferStatusFromConsole(content)
	record := &api.ExecutionRecord{
		ID:            executionID,
		Status:        status,
		Result:        result,
		ConsoleOutput: content,
		Parameters:    map[string]interface{}{},
	}

	if err := s.rdb.Set(ctx, consoleKey(executionID), content, 0).Err(); err != nil {
		logging.Warn("Metadata", "Could not repopulate console output for %s: %v", executionID, err)
	} else {
		record.ConsoleStored = true
	}
	return record, nil
}

// ListExecutions returns executions newest first. Filters pick the
// narrowest index: the per-template list, the status set joined with a
// time-ordered index, or the global index.
func (s *Store) ListExecutions(ctx context.Context, filter api.ExecutionFilter) ([]*api.ExecutionRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	var (
		ids []string
		err error
	)
	switch {
	case filter.TemplateName != "" && filter.Status != "":
		ids, err = s.filterByStatus(ctx, templateExecutionsKey(filter.TemplateName), filter.Status, limit)
	case filter.TemplateName != "":
		ids, err = s.rdb.ZRevRange(ctx, templateExecutionsKey(filter.TemplateName), 0, int64(limit-1)).Result()
	case filter.Status != "":
		ids, err = s.filterByStatus(ctx, executionsKey, filter.Status, limit)
	default:
		ids, err = s.rdb.ZRevRange(ctx, executionsKey, 0, int64(limit-1)).Result()
	}
	if err != nil {
		return nil, api.NewStoreError("list executions", err)
	}

	records := make([]*api.ExecutionRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetExecution(ctx, id)
		if err != nil {
			logging.Warn("Metadata", "Could not load execution %s: %v", id, err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// filterByStatus walks a time-ordered index newest first and keeps the
// ids that are members of the status set, up to limit.
func (s *Store) filterByStatus(ctx context.Context, indexKey, status string, limit int) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, statusKey(status)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	inStatus := make(map[string]struct{}, len(members))
	for _, id := range members {
		inStatus[id] = struct{}{}
	}

	ordered, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, limit)
	for _, id := range ordered {
		if _, ok := inStatus[id]; !ok {
			continue
		}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func mergeHashFields(base map[string]string, updates map[string]interface{}) map[string]string {
	merged := make(map[string]string, len(base)+len(updates))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range updates {
		if str, ok := v.(string); ok {
			merged[k] = str
		}
	}
	return merged
}

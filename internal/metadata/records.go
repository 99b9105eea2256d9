package metadata

import (
	"encoding/json"
	"strconv"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Hash field values are always strings; these helpers convert between
// the wire records and the flat hash representation.

func templateFromHash(name string, fields map[string]string) *api.TemplateRecord {
	version, _ := strconv.Atoi(fields["version"])
	if version == 0 {
		version = 1
	}
	return &api.TemplateRecord{
		Name:         name,
		Description:  fields["description"],
		TemplatePath: fields["template_path"],
		CreatedAt:    fields["created_at"],
		UpdatedAt:    fields["updated_at"],
		Version:      version,
	}
}

func templateToHash(record *api.TemplateRecord) map[string]interface{} {
	return map[string]interface{}{
		"name":          record.Name,
		"description":   record.Description,
		"template_path": record.TemplatePath,
		"created_at":    record.CreatedAt,
		"updated_at":    record.UpdatedAt,
		"version":       strconv.Itoa(record.Version),
	}
}

func deploymentFromHash(fields map[string]string) *api.DeploymentRecord {
	version, _ := strconv.Atoi(fields["template_version"])
	return &api.DeploymentRecord{
		ID:              fields["id"],
		TemplateName:    fields["template_name"],
		TemplateVersion: version,
		JenkinsJobName:  fields["jenkins_job_name"],
		ServerName:      fields["server_name"],
		DeployedAt:      fields["deployed_at"],
		Status:          fields["status"],
	}
}

func deploymentToHash(record *api.DeploymentRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":               record.ID,
		"template_name":    record.TemplateName,
		"template_version": strconv.Itoa(record.TemplateVersion),
		"jenkins_job_name": record.JenkinsJobName,
		"server_name":      record.ServerName,
		"deployed_at":      record.DeployedAt,
		"status":           record.Status,
	}
}

func executionFromHash(id string, fields map[string]string) *api.ExecutionRecord {
	record := &api.ExecutionRecord{
		ID:              id,
		DeploymentID:    fields["deployment_id"],
		TemplateName:    fields["template_name"],
		JenkinsJobName:  fields["jenkins_job_name"],
		ServerName:      fields["server_name"],
		BuildNumber:     fields["build_number"],
		StartedAt:       fields["started_at"],
		Status:          fields["status"],
		Result:          fields["result"],
		FinishedAt:      fields["finished_at"],
		ConsoleStored:   fields["console_stored"] == "true",
		MetadataUpdated: true,
	}
	if raw := fields["duration"]; raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logging.Warn("Metadata", "Execution %s has unparseable duration %q", id, raw)
		} else {
			record.DurationMillis = millis
		}
	}
	record.Parameters = decodeParameters(id, fields["parameters"])
	return record
}

func executionToHash(record *api.ExecutionRecord) map[string]interface{} {
	duration := ""
	if record.DurationMillis > 0 {
		duration = strconv.FormatInt(record.DurationMillis, 10)
	}
	return map[string]interface{}{
		"id":               record.ID,
		"deployment_id":    record.DeploymentID,
		"template_name":    record.TemplateName,
		"jenkins_job_name": record.JenkinsJobName,
		"server_name":      record.ServerName,
		"build_number":     record.BuildNumber,
		"parameters":       encodeParameters(record.Parameters),
		"started_at":       record.StartedAt,
		"status":           record.Status,
		"result":           record.Result,
		"duration":         duration,
		"finished_at":      record.FinishedAt,
	}
}

func encodeParameters(params map[string]interface{}) string {
	if params == nil {
		params = map[string]interface{}{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		logging.Warn("Metadata", "Could not encode execution parameters: %v", err)
		return "{}"
	}
	return string(data)
}

func decodeParameters(id, raw string) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	var params map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		logging.Warn("Metadata", "Execution %s has unparseable parameters, dropping them", id)
		return map[string]interface{}{}
	}
	return params
}

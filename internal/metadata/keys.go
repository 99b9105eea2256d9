package metadata

import "fmt"

// All store keys live under this prefix. No other component reads or
// writes these keys directly.
const keyPrefix = "miladyos:"

const (
	// templatesKey is the sorted set of template names, scored by the
	// wall time of the last update.
	templatesKey = keyPrefix + "templates"

	// executionsKey is the global sorted set of execution ids, scored
	// by start time.
	executionsKey = keyPrefix + "executions"
)

func templateKey(name string) string {
	return fmt.Sprintf("%stemplate:%s", keyPrefix, name)
}

func templateDeploymentsKey(name string) string {
	return fmt.Sprintf("%stemplate_deployments:%s", keyPrefix, name)
}

func deploymentKey(id string) string {
	return fmt.Sprintf("%sdeployment:%s", keyPrefix, id)
}

func jobIndexKey(serverName, jobName string) string {
	return fmt.Sprintf("%sjob_index:%s:%s", keyPrefix, serverName, jobName)
}

func executionKey(id string) string {
	return fmt.Sprintf("%sexecution:%s", keyPrefix, id)
}

func templateExecutionsKey(name string) string {
	return fmt.Sprintf("%stemplate_executions:%s", keyPrefix, name)
}

func jobExecutionsKey(serverName, jobName string) string {
	return fmt.Sprintf("%sjob_executions:%s:%s", keyPrefix, serverName, jobName)
}

func statusKey(status string) string {
	return fmt.Sprintf("%sstatus:%s", keyPrefix, status)
}

func consoleKey(id string) string {
	return fmt.Sprintf("%sconsole:%s", keyPrefix, id)
}

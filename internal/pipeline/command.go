package pipeline

import (
	"strings"

	"github.com/google/uuid"
)

// commandJenkinsfile is the embedded pipeline used by ExecuteCommand.
// The COMMAND, WORKING_DIR and SESSION_ID placeholders are substituted
// as pipeline text before the job is created, so the job itself carries
// no parameters. The BEGIN/END markers and the EXIT CODE line let
// callers cut the command's own output out of the Jenkins noise.
const commandJenkinsfile = `pipeline {
    agent any

    stages {
        stage('Execute Command') {
            steps {
                dir('${params.WORKING_DIR}') {
                    sh """
                        echo "==== COMMAND EXECUTION ===="
                        echo "COMMAND: ${params.COMMAND}"
                        echo "SESSION: ${params.SESSION_ID}"
                        echo "WORKING DIR: \$(pwd)"
                        echo "TIME: \$(date)"
                        echo "==== OUTPUT ===="

                        ${params.COMMAND} 2>&1
                        EXIT_CODE=\$?

                        echo "==== END OUTPUT ===="
                        echo "EXIT CODE: \$EXIT_CODE"
                    """
                }
            }
        }
    }
}
`

// renderCommandJenkinsfile substitutes the command, working directory
// and session id into the embedded pipeline. The command is spliced in
// as pipeline text, not shell-escaped; quotes inside it can break the
// generated script.
func renderCommandJenkinsfile(command, workingDir, sessionID string) string {
	return strings.NewReplacer(
		"${params.COMMAND}", command,
		"${params.WORKING_DIR}", workingDir,
		"${params.SESSION_ID}", sessionID,
	).Replace(commandJenkinsfile)
}

// shortID returns the first 8 characters of a fresh UUID, used for
// throwaway job names.
func shortID() string {
	return uuid.New().String()[:8]
}

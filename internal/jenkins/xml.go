package jenkins

import (
	"fmt"
	"strings"
)

// jobConfigTemplate is the pipeline job configuration document. The
// only variable part is the script body; the definition is always the
// sandboxed CpsFlowDefinition.
const jobConfigTemplate = `<flow-definition plugin="workflow-job@2.40">
    <definition class="org.jenkinsci.plugins.workflow.cps.CpsFlowDefinition" plugin="workflow-cps@2.90">
        <script>%s</script>
        <sandbox>true</sandbox>
    </definition>
</flow-definition>`

// xmlEscaper escapes the characters that would break out of the
// <script> element.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// jobConfigXML renders the config document for a Jenkinsfile script.
func jobConfigXML(jenkinsfileText string) string {
	return fmt.Sprintf(jobConfigTemplate, xmlEscaper.Replace(jenkinsfileText))
}

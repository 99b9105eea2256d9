package template

import (
	"fmt"
	"strings"
	"unicode"
)

// stageKeywords maps a stage to the description keywords that trigger
// it. The scaffolder is a cosmetic helper: it produces a syntactically
// valid starting point that a human still edits.
var stageKeywords = []struct {
	stage    string
	echo     string
	hint     string
	keywords []string
}{
	{"Build", "Building...", "Your build commands here", []string{"build", "compile", "package"}},
	{"Test", "Testing...", "Your test commands here", []string{"test", "check", "validate"}},
	{"Deploy", "Deploying...", "Your deployment commands here", []string{"deploy", "publish", "release"}},
	{"Docker Build", "Building Docker image...", "docker build -t myapp:latest .", []string{"docker", "container"}},
}

// GenerateJenkinsfile produces a declarative Jenkinsfile whose stage
// set is derived from keyword matches in the description.
func GenerateJenkinsfile(name, description, agent string, environment []string) string {
	if agent == "" {
		agent = "any"
	}

	lower := strings.ToLower(description)

	var stages []string
	stages = append(stages, renderStage("Checkout", "checkout scm"))

	for _, candidate := range stageKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				stages = append(stages, renderStage(candidate.stage,
					fmt.Sprintf("echo '%s'", candidate.echo),
					fmt.Sprintf(`sh 'echo "%s"'`, candidate.hint)))
				break
			}
		}
	}

	// Nothing matched: derive a generic stage from the description's
	// leading verb.
	if len(stages) == 1 {
		action := mainAction(description)
		stages = append(stages, renderStage(capitalize(action),
			fmt.Sprintf("echo '%s'", strings.ReplaceAll(description, "'", "")),
			fmt.Sprintf(`sh 'echo "Commands to %s will go here"'`, action)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Jenkinsfile for %s\n", name)
	fmt.Fprintf(&b, "// Description: %s\n", description)
	b.WriteString("pipeline {\n")
	fmt.Fprintf(&b, "    agent %s\n", agent)
	if len(environment) > 0 {
		b.WriteString("    environment {\n")
		for _, envVar := range environment {
			fmt.Fprintf(&b, "        %s\n", envVar)
		}
		b.WriteString("    }\n")
	}
	b.WriteString("    stages {\n")
	for _, stage := range stages {
		b.WriteString(stage)
	}
	b.WriteString("    }\n")
	b.WriteString("    post {\n")
	b.WriteString("        success {\n")
	b.WriteString("            echo 'Pipeline completed successfully!'\n")
	b.WriteString("        }\n")
	b.WriteString("        failure {\n")
	b.WriteString("            echo 'Pipeline failed'\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

func renderStage(name string, steps ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "        stage('%s') {\n", name)
	b.WriteString("            steps {\n")
	for _, step := range steps {
		fmt.Fprintf(&b, "                %s\n", step)
	}
	b.WriteString("            }\n")
	b.WriteString("        }\n")
	return b.String()
}

// mainAction extracts the leading verb of the description, stripped to
// alphanumerics.
func mainAction(description string) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return "run"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(fields[0]) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "run"
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// Render expands the system and user templates with vars.
//
// Templates use {{name}} placeholders and {{#if name}}...{{else}}...{{/if}}
// blocks. Placeholders are substituted in a single pass so values that
// themselves contain braces are inserted verbatim.
func Render(def *Prompt, vars map[string]string) (system, user string, err error) {
	if def == nil {
		return "", "", errors.New("prompt is required")
	}
	for _, name := range def.Config.Input.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			return "", "", fmt.Errorf("prompt %s: missing required variable %q", def.Config.Slug, name)
		}
	}

	system = applyVars(applyConditionals(def.Config.SystemTemplate, vars), vars)

	userTemplate := def.Config.UserTemplate
	if userTemplate == "" {
		userTemplate = "{{code}}"
	}
	user = applyVars(applyConditionals(userTemplate, vars), vars)

	if strings.TrimSpace(system) == "" {
		return "", "", errors.New("system prompt is required")
	}
	return system, user, nil
}

func applyVars(template string, vars map[string]string) string {
	var sb strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			sb.WriteString(rest)
			break
		}
		closeIdx := strings.Index(rest[open:], "}}")
		if closeIdx == -1 {
			sb.WriteString(rest)
			break
		}
		closeIdx += open

		name := strings.TrimSpace(rest[open+2 : closeIdx])
		sb.WriteString(rest[:open])
		if value, ok := vars[name]; ok {
			sb.WriteString(value)
		} else {
			sb.WriteString(rest[open : closeIdx+2])
		}
		rest = rest[closeIdx+2:]
	}
	return sb.String()
}

// applyConditionals resolves {{#if var}}content{{else}}fallback{{/if}} blocks.
// A variable counts as set when it is present and not blank.
func applyConditionals(template string, vars map[string]string) string {
	result := template
	for {
		start := strings.Index(result, "{{#if")
		if start == -1 {
			break
		}
		tagEnd := strings.Index(result[start:], "}}")
		if tagEnd == -1 {
			break
		}
		tagEnd += start

		varName := strings.TrimSpace(result[start+len("{{#if") : tagEnd])
		blockStart := tagEnd + 2

		elseStart, elseEnd, endStart, endEnd := findConditionalBlock(result, blockStart)
		if endStart == -1 {
			break
		}

		ifContent := result[blockStart:endStart]
		elseContent := ""
		if elseStart != -1 {
			ifContent = result[blockStart:elseStart]
			elseContent = result[elseEnd:endStart]
		}

		replacement := elseContent
		if strings.TrimSpace(vars[varName]) != "" {
			replacement = ifContent
		}

		result = result[:start] + replacement + result[endEnd:]
	}
	return result
}

func findConditionalBlock(input string, start int) (elseStart, elseEnd, endStart, endEnd int) {
	depth := 0
	elseStart, elseEnd = -1, -1

	pos := start
	for {
		openIdx := strings.Index(input[pos:], "{{")
		if openIdx == -1 {
			return -1, -1, -1, -1
		}
		openIdx += pos

		closeIdx := strings.Index(input[openIdx:], "}}")
		if closeIdx == -1 {
			return -1, -1, -1, -1
		}
		closeIdx += openIdx

		tag := strings.TrimSpace(input[openIdx+2 : closeIdx])
		switch {
		case tag == "#if" || strings.HasPrefix(tag, "#if "):
			depth++
		case tag == "/if":
			if depth == 0 {
				return elseStart, elseEnd, openIdx, closeIdx + 2
			}
			depth--
		case tag == "else" && depth == 0 && elseStart == -1:
			elseStart = openIdx
			elseEnd = closeIdx + 2
		}

		pos = closeIdx + 2
	}
}

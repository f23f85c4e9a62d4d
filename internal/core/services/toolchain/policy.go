package toolchain

import "strings"

// PolicyError is a synthetic diagnostic raised before any toolchain runs
type PolicyError struct {
	Language string
	Message  string
}

func (e *PolicyError) Error() string {
	return e.Message
}

const phpOpenTag = "<?php\n"

// PHPOpenTagPolicy rejects source that brings its own open tag, which the runtime re-inserts
func PHPOpenTagPolicy(code string) error {
	if strings.HasPrefix(code, "<") || strings.Contains(code, "<?") {
		return &PolicyError{
			Language: "php",
			Message:  `PHP Parse error: Unexpected token "<". Please do not include any code starting with "<".`,
		}
	}
	return nil
}

func PHPPrepend(code string) string {
	return phpOpenTag + code
}

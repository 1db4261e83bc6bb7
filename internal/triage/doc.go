// Package triage provides the business boundary for incident triage.
// It defines the Service (async dispatch, notification), Runner (evidence
// gathering and agent session orchestration), the deterministic playbook
// prompt, and the structured-output schema the agent maintains.
package triage

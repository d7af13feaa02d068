// Package findings evaluates threshold rules against finished audit runs and
// delivers webhook notifications for them. Rules are configured under
// audit.findings; webhooks go to Teams, Slack, or generic HTTP targets.
package findings

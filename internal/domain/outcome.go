package domain

type OutcomeKind string

const (
	OutcomeIgnored        OutcomeKind = "ignored"
	OutcomeUsageReply     OutcomeKind = "usage_reply"
	OutcomeAddressMissing OutcomeKind = "address_missing"
	OutcomeParseFailed    OutcomeKind = "parse_failed"
	OutcomeDeployed       OutcomeKind = "deployed"
	OutcomeDeployFailed   OutcomeKind = "deploy_failed"
)

// Outcome is the terminal value of one pipeline run.
type Outcome struct {
	Kind    OutcomeKind
	Hash    string
	Author  User
	Command ParsedCommand
	Image   ResolvedImage
	Meta    PublishedMetadata

	// Result is set only for OutcomeDeployed.
	Result *DeploymentResult
	// Reason is set only for OutcomeDeployFailed.
	Reason string
}

func (o Outcome) Terminal() bool {
	return o.Kind == OutcomeDeployed || o.Kind == OutcomeDeployFailed
}

package panel

// ExplainFallback describes relationship types without a specific entry.
const ExplainFallback = "Represents a dependency, containment, or access relationship between resources."

var explanations = map[string]string{
	"ATTACHED_TO":                  "Indicates this resource is directly attached and may inherit permissions or lifecycle.",
	"MEMBER_OF":                    "Shows membership/trust grouping that can affect access or blast radius.",
	"EXPOSED_VIA":                  "Represents an exposure path (often internet-facing) that may increase risk.",
	"MEMBER_OF_VPC":                "Indicates this resource is in a VPC; networking boundaries and routing apply.",
	"MEMBER_OF_EC2_SECURITY_GROUP": "Indicates the instance is governed by a security group; ingress/egress rules apply.",
}

// Explain returns a one-sentence explanation of a relationship type.
// Matching is exact.
func Explain(relType string) string {
	if s, ok := explanations[relType]; ok {
		return s
	}
	return ExplainFallback
}

package naming

import "fmt"

// Role strings as they appear in security group names and instance tags.
const (
	MainRole        = "main"
	SubordinateRole = "subordinate"
)

func MainGroup(cluster string) string {
	return fmt.Sprintf("%s-%s", cluster, MainRole)
}

// SubordinateGroup is plural, unlike the role tag.
func SubordinateGroup(cluster string) string {
	return fmt.Sprintf("%s-%ss", cluster, SubordinateRole)
}

// Groups returns both security group names, main first.
func Groups(cluster string) []string {
	return []string{MainGroup(cluster), SubordinateGroup(cluster)}
}

func Instance(cluster, role, instanceID string) string {
	return fmt.Sprintf("%s-%s-%s", cluster, role, instanceID)
}

func LaunchGroup(cluster string) string {
	return fmt.Sprintf("launch-group-%s", cluster)
}

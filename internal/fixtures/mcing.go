// Package fixtures provides the sections of a small operator manual used by
// tests and benchmarks across the repository.
package fixtures

import "github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"

const subResourcesBody = "MinecraftList MinecraftSpec Minecraft Minecraft is the Schema for the minecrafts API " +
	"Field Description Scheme Required metadata metav1.ObjectMeta false spec MinecraftSpec false " +
	"status MinecraftStatus false Back to Custom Resources MinecraftList MinecraftList contains a list of " +
	"Minecraft Field Description Scheme Required metadata metav1.ListMeta false items [] Minecraft true " +
	"Back to Custom Resources MinecraftSpec MinecraftSpec defines the desired state of Minecraft " +
	"Field Description Scheme Required image Image for minecraft server *string false volumeClaimSpec " +
	"PersistentVolumeClaimSpec is a specification of PersistentVolumeClaim for persisting data in minecraft. " +
	"corev1.PersistentVolumeClaimSpec true Back to Custom Resources"

// MCing returns the four sections of the MCing documentation in book order
// with positional ids.
func MCing() []index.Document {
	return []index.Document{
		{
			ID:          "0",
			URL:         "index.html#mcing-documentation",
			Title:       "MCing documentation",
			Body:        "This is the documentation site for MCing . MCing is a Kubernetes operator for Minecraft server.",
			Breadcrumbs: []string{"MCing", "MCing documentation"},
		},
		{
			ID:          "1",
			URL:         "crd.html#custom-resources",
			Title:       "Custom resources",
			Body:        "",
			Breadcrumbs: []string{"Custom resources", "Custom resources"},
		},
		{
			ID:          "2",
			URL:         "crd_minecraft.html#custom-resources",
			Title:       "Custom Resources",
			Body:        "Minecraft",
			Breadcrumbs: []string{"Custom resources", "Minecraft", "Custom Resources"},
		},
		{
			ID:          "3",
			URL:         "crd_minecraft.html#sub-resources",
			Title:       "Sub Resources",
			Body:        subResourcesBody,
			Breadcrumbs: []string{"Custom resources", "Minecraft", "Sub Resources"},
		},
	}
}

// SubResourcesBody is the body text of the fourth MCing section.
func SubResourcesBody() string {
	return subResourcesBody
}

package models

// GitHubUser is the subset of the GitHub user profile exposed by the
// username validation endpoint.
type GitHubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

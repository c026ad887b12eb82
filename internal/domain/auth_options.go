package domain

// PasswordOption enables local username/password login when present.
type PasswordOption struct {
	Name string `json:"name" yaml:"name"`
}

// ExternalIdP is one federated identity provider offered on the login page.
type ExternalIdP struct {
	IdpAlias    string `json:"idp_alias" yaml:"idp_alias"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// AuthOptions is the set of login methods offered by the portal.
type AuthOptions struct {
	Password *PasswordOption `json:"password,omitempty" yaml:"password"`
	External []ExternalIdP   `json:"external" yaml:"external"`
}

func (o AuthOptions) PasswordEnabled() bool {
	return o.Password != nil
}

// HasIdp reports whether alias is one of the configured external providers.
func (o AuthOptions) HasIdp(alias string) bool {
	for _, ext := range o.External {
		if ext.IdpAlias == alias {
			return true
		}
	}
	return false
}

// ForIdp returns options restricted to the single provider alias.
// Password login and every other provider are dropped.
func (o AuthOptions) ForIdp(alias string) AuthOptions {
	filtered := AuthOptions{External: []ExternalIdP{}}
	for _, ext := range o.External {
		if ext.IdpAlias == alias {
			filtered.External = append(filtered.External, ext)
		}
	}
	return filtered
}

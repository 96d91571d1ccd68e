package domain

// Credentials is the opaque credential set of a platform connection. Keys
// depend on the platform type; values are never logged and never echoed in
// API responses.
type Credentials map[string]string

// Get returns the named credential field, or "" when absent
func (c Credentials) Get(key string) string {
	if c == nil {
		return ""
	}
	return c[key]
}

// credentialManifests lists the required credential fields per platform type.
// Used both for validation on connection add/edit and for form generation by
// the frontend.
var credentialManifests = map[PlatformType][]string{
	PlatformTrendyol:    {"apiKey", "apiSecret", "sellerId"},
	PlatformHepsiburada: {"merchantId", "secretKey"},
	PlatformN11:         {"appKey", "appSecret"},
	PlatformAmazon:      {"refreshToken", "clientId", "clientSecret", "marketplaceId", "region"},
	PlatformEtsy:        {"apiKey", "accessToken", "shopId"},
	PlatformShopify:     {"shopDomain", "accessToken"},
	PlatformCSV:         {},
}

// RequiredCredentialFields returns the credential fields a platform requires
func RequiredCredentialFields(platform PlatformType) []string {
	return credentialManifests[platform]
}

// MissingCredentialFields returns the required fields absent or empty in the
// given credential set, in manifest order.
func MissingCredentialFields(platform PlatformType, creds Credentials) []string {
	var missing []string
	for _, field := range credentialManifests[platform] {
		if creds.Get(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

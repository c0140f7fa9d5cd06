package privy

import "nogoon-backend/internal/models"

// ExtractIdentity maps verified claims to a canonical identity. Pure;
// the only failure is a missing subject.
//
// Privy emits wallet and email in several shapes: a top-level email
// claim, a wallet claim that is either a bare address string or an
// object with an "address" field, and an optional linked_accounts list.
// When linked_accounts is present the first wallet-typed entry wins and
// later wallet entries are ignored, while every email-typed entry
// overwrites the email, so the last one wins. The asymmetry matches the
// provider's observed behavior and is relied on downstream; do not
// unify it.
func ExtractIdentity(claims Claims) (models.Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Identity{}, ErrMissingSubject
	}

	identity := models.Identity{UserID: sub}

	if email, ok := claims["email"].(string); ok && email != "" {
		identity.Email = &email
	}

	switch wallet := claims["wallet"].(type) {
	case string:
		if wallet != "" {
			w := wallet
			identity.WalletAddress = &w
		}
	case map[string]any:
		if addr, ok := wallet["address"].(string); ok && addr != "" {
			identity.WalletAddress = &addr
		}
	}

	if accounts, ok := claims["linked_accounts"].([]any); ok {
		walletSeen := false
		for _, raw := range accounts {
			account, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			addr, _ := account["address"].(string)
			if addr == "" {
				continue
			}
			switch account["type"] {
			case "wallet":
				if !walletSeen {
					a := addr
					identity.WalletAddress = &a
					walletSeen = true
				}
			case "email":
				a := addr
				identity.Email = &a
			}
		}
	}

	return identity, nil
}

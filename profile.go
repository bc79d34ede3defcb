package yggauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hollowell/yggauth/internal"
	"github.com/hollowell/yggauth/signer"
)

// texturesPayload is the JSON document carried base64-encoded inside the
// textures property. Field names and the millisecond timestamp are fixed by
// the session protocol; launchers parse this shape verbatim.
type texturesPayload struct {
	Timestamp   int64                     `json:"timestamp"`
	ProfileID   string                    `json:"profileId"`
	ProfileName string                    `json:"profileName"`
	Textures    map[string]textureTarget `json:"textures"`
}

type textureTarget struct {
	URL string `json:"url"`
}

// serializeProfile builds the wire view of a profile record. The textures
// property is omitted when the profile has neither skin nor cape; its
// payload timestamp is the profile's creation time in milliseconds. With
// sign set, every property is countersigned so launchers can verify the
// profile against the server's public key; each signature covers the
// property value exactly as serialized.
func serializeProfile(rec ProfileRecord, cfg TexturesConfig, sig *signer.Manager, sign bool) (Profile, error) {
	var properties []Property

	targets := map[string]textureTarget{}
	if rec.SkinPath != "" {
		targets["SKIN"] = textureTarget{URL: textureURL(cfg.BaseURL, rec.SkinPath)}
	}
	if rec.CapePath != "" {
		targets["CAPE"] = textureTarget{URL: textureURL(cfg.BaseURL, rec.CapePath)}
	}
	if len(targets) > 0 {
		payload := texturesPayload{
			Timestamp:   rec.CreatedAt.UnixMilli(),
			ProfileID:   internal.CompactUUID(rec.ProfileID),
			ProfileName: rec.Name,
			Textures:    targets,
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Profile{}, fmt.Errorf("serialize textures: %w", err)
		}
		properties = append(properties, Property{
			Name:  "textures",
			Value: base64.StdEncoding.EncodeToString(encoded),
		})
	}

	if uploadable := uploadableTextures(cfg); uploadable != "" {
		properties = append(properties, Property{
			Name:  "uploadableTextures",
			Value: uploadable,
		})
	}

	if sign {
		for i := range properties {
			signature, err := sig.Sign([]byte(properties[i].Value))
			if err != nil {
				return Profile{}, fmt.Errorf("sign property %s: %w", properties[i].Name, err)
			}
			properties[i].Signature = signature
		}
	}

	return Profile{
		ID:         internal.CompactUUID(rec.ProfileID),
		Name:       rec.Name,
		Properties: properties,
	}, nil
}

func uploadableTextures(cfg TexturesConfig) string {
	var kinds []string
	if cfg.AllowSkin {
		kinds = append(kinds, "skin")
	}
	if cfg.AllowCape {
		kinds = append(kinds, "cape")
	}

	return strings.Join(kinds, ",")
}

func textureURL(baseURL, path string) string {
	if baseURL == "" {
		return path
	}

	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// buildUserView shapes the optional account view attached to authenticate
// and refresh responses.
func buildUserView(user UserRecord) *UserView {
	view := &UserView{
		ID:         internal.CompactUUID(user.UserID),
		Properties: []Property{},
	}
	if user.PreferredLanguage != "" {
		view.Properties = append(view.Properties, Property{
			Name:  "preferredLanguage",
			Value: user.PreferredLanguage,
		})
	}

	return view
}

// ABOUTME: Tolerant decoding of upstream identity payloads
// ABOUTME: Unwraps {data:{...}} envelopes and normalizes user records with field aliases

package models

import (
	"github.com/tidwall/gjson"
)

// Field aliases accepted from the upstream. The first present key wins.
var (
	idKeys         = []string{"id", "_id", "userId", "user_id"}
	emailKeys      = []string{"email", "emailAddress", "email_address"}
	firstNameKeys  = []string{"firstName", "first_name"}
	lastNameKeys   = []string{"lastName", "last_name"}
	usernameKeys   = []string{"username", "userName", "user_name"}
	roleKeys       = []string{"role"}
	isVerifiedKeys = []string{"isVerified", "is_verified", "emailVerified", "verified"}
	isActiveKeys   = []string{"isActive", "is_active", "active"}
	avatarKeys     = []string{"avatar", "avatarUrl", "avatar_url"}
	phoneKeys      = []string{"phone", "phoneNumber", "phone_number"}
)

// Unwrap returns the payload of an upstream response, accepting either an
// enveloped {"data": {...}} body or a bare object.
func Unwrap(raw []byte) (gjson.Result, bool) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return gjson.Result{}, false
	}
	if data := root.Get("data"); data.IsObject() {
		return data, true
	}
	return root, true
}

// FirstString returns the first non-empty string value among keys.
func FirstString(obj gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.Type != gjson.Null {
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstBool(obj gjson.Result, keys ...string) bool {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() && v.Type != gjson.Null {
			return v.Bool()
		}
	}
	return false
}

// UserFromPayload extracts the user record from an unwrapped payload. The
// record may sit under "user" or be the payload itself. It returns nil when
// no object carrying an id or email is found.
func UserFromPayload(payload gjson.Result) *UserProfile {
	obj := payload
	if nested := payload.Get("user"); nested.IsObject() {
		obj = nested
	}
	if !obj.IsObject() {
		return nil
	}
	profile := ProjectUser(obj)
	if profile.ID == "" && profile.Email == "" {
		return nil
	}
	return profile
}

// ProjectUser maps a user object onto UserProfile without requiring any
// field. Token grants relay whatever user the upstream returned.
func ProjectUser(obj gjson.Result) *UserProfile {
	return &UserProfile{
		ID:         FirstString(obj, idKeys...),
		Email:      FirstString(obj, emailKeys...),
		FirstName:  FirstString(obj, firstNameKeys...),
		LastName:   FirstString(obj, lastNameKeys...),
		Username:   FirstString(obj, usernameKeys...),
		Role:       FirstString(obj, roleKeys...),
		IsVerified: firstBool(obj, isVerifiedKeys...),
		IsActive:   firstBool(obj, isActiveKeys...),
		Avatar:     FirstString(obj, avatarKeys...),
		Phone:      FirstString(obj, phoneKeys...),
	}
}

// ParseUserProfile decodes a profile-fetch response body.
func ParseUserProfile(raw []byte) (*UserProfile, bool) {
	payload, ok := Unwrap(raw)
	if !ok {
		return nil, false
	}
	profile := UserFromPayload(payload)
	return profile, profile != nil
}

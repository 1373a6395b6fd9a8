package scidata

import (
	"encoding/json"

	"github.com/google/uuid"
)

// validateContent checks and completes the content.json record. Validation
// works on a deep copy and commits the completed record atomically, so a
// failed validation leaves the item untouched.
func (c *Container) validateContent() error {
	content := deepCopy(c.content())

	if !truthy(content["uuid"]) {
		content["uuid"] = uuid.NewString()
	}
	if _, ok := content["replaces"]; !ok {
		content["replaces"] = nil
	}

	ct, ok := content["containerType"]
	if !ok {
		return &ValidationError{Item: "content.json", Field: "containerType", Reason: "is missing"}
	}
	ctr, ok := ct.(Record)
	if !ok {
		return &ValidationError{Item: "content.json", Field: "containerType", Reason: "is not a dictionary"}
	}
	if !truthy(ctr["name"]) {
		return &ValidationError{Item: "content.json", Field: "containerType.name", Reason: "is missing"}
	}
	_, hasID := ctr["id"]
	_, hasVersion := ctr["version"]
	if hasID != hasVersion {
		return &ValidationError{Item: "content.json", Field: "containerType", Reason: "id and version must be given together"}
	}

	if _, ok := content["static"]; ok {
		content["static"] = truthy(content["static"])
	} else {
		content["static"] = false
	}
	if _, ok := content["complete"]; ok && !content["static"].(bool) {
		content["complete"] = truthy(content["complete"])
	} else {
		content["complete"] = true
	}

	now := Timestamp()
	if !truthy(content["created"]) {
		content["created"] = now
	}
	if !truthy(content["storageTime"]) || !content["complete"].(bool) {
		content["storageTime"] = now
	}
	if !truthy(content["hash"]) {
		content["hash"] = nil
	}

	if !truthy(content["usedSoftware"]) {
		content["usedSoftware"] = []any{}
	} else {
		used, ok := content["usedSoftware"].([]any)
		if !ok {
			return &ValidationError{Item: "content.json", Field: "usedSoftware", Reason: "is not a list"}
		}
		for _, entry := range used {
			sw, ok := entry.(Record)
			if !ok {
				return &ValidationError{Item: "content.json", Field: "usedSoftware", Reason: "entry is not a dictionary"}
			}
			if !truthy(sw["name"]) {
				return &ValidationError{Item: "content.json", Field: "usedSoftware.name", Reason: "is missing"}
			}
			if !truthy(sw["version"]) {
				return &ValidationError{Item: "content.json", Field: "usedSoftware.version", Reason: "is missing"}
			}
			if _, ok := sw["id"]; ok && !truthy(sw["idType"]) {
				return &ValidationError{Item: "content.json", Field: "usedSoftware.idType", Reason: "is required with id"}
			}
		}
	}

	content["modelVersion"] = ModelVersion
	return c.items["content.json"].SetValue(content)
}

// validateMeta checks and completes the meta.json record, substituting the
// author identity from the configuration for missing keys.
func (c *Container) validateMeta() error {
	meta := deepCopy(c.meta())

	if _, ok := meta["author"]; !ok {
		meta["author"] = c.cfg.Author
	}
	if !truthy(meta["author"]) {
		return &ValidationError{Item: "meta.json", Field: "author", Reason: "is missing"}
	}
	if _, ok := meta["email"]; !ok {
		meta["email"] = c.cfg.Email
	}
	if _, ok := meta["orcid"]; !ok {
		meta["orcid"] = c.cfg.ORCID
	}
	if _, ok := meta["organization"]; !ok {
		meta["organization"] = c.cfg.Organization
	}
	meta["orcid"] = NormalizeORCID(cstr(meta["orcid"]))

	if _, ok := meta["title"]; !ok {
		meta["title"] = ""
	}
	if !truthy(meta["title"]) {
		return &ValidationError{Item: "meta.json", Field: "title", Reason: "is missing"}
	}

	for _, key := range []string{"comment", "description", "timestamp", "doi", "license"} {
		if _, ok := meta[key]; !ok {
			meta[key] = ""
		}
	}
	if _, ok := meta["keywords"]; !ok {
		meta["keywords"] = []any{}
	}

	return c.items["meta.json"].SetValue(meta)
}

// truthy implements the permissive emptiness test used by record
// validation: nil, false, empty strings, zero numbers and empty collections
// count as absent.
func truthy(v any) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	case string:
		return vv != ""
	case json.Number:
		f, err := vv.Float64()
		return err == nil && f != 0
	case float64:
		return vv != 0
	case int:
		return vv != 0
	case Record:
		return len(vv) > 0
	case []any:
		return len(vv) > 0
	case []string:
		return len(vv) > 0
	}
	return true
}

func cstr(v any) string {
	s, _ := v.(string)
	return s
}

func deepCopy(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch vv := v.(type) {
	case Record:
		return deepCopy(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	default:
		return v
	}
}

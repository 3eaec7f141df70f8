// Package domain contains the core business entities and domain logic of
// the task manager: the Task entity, partial-update payloads, task filters,
// and their validation rules. It is independent of any specific
// infrastructure or delivery mechanism.
package domain

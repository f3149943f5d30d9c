package rbac

// Simple default policy. Assistants can grade against existing rubrics but
// not edit them.
var RolePermissions = map[string][]string{
	"assistant": {
		"rubric:view",
		"session:start",
		"session:grade",
		"session:view",
		"result:view",
	},
	"teacher": {
		"rubric:create",
		"rubric:view",
		"rubric:delete",
		"session:start",
		"session:grade",
		"session:view",
		"session:cancel",
		"session:finalize",
		"result:view",
		"result:review",
	},
	"admin": {
		"*", // everything
	},
}

package appliance

// Wire shapes for the storage appliance REST API. Field names follow the
// appliance's JSON contract exactly.

// DatasetSpec creates a quota-bound FILESYSTEM dataset under a pool.
type DatasetSpec struct {
	Name       string `json:"name"` // "<pool>/users/<identity>"
	Type       string `json:"type"`
	QuotaBytes int64  `json:"quota"`
}

// NewDataset builds the spec for a user dataset at the given path.
func NewDataset(path string, quotaBytes int64) DatasetSpec {
	return DatasetSpec{Name: path, Type: "FILESYSTEM", QuotaBytes: quotaBytes}
}

// UserSpec creates an OS-level account on the appliance. The shell is
// restricted; every account gets a private primary group.
type UserSpec struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Home        string `json:"home"`
	Shell       string `json:"shell"`
	GroupCreate bool   `json:"group_create"`
}

// RestrictedShell denies interactive logins while keeping file access working.
const RestrictedShell = "/usr/sbin/nologin"

// forLog returns a copy safe for payload logging: everything but the password.
func (u UserSpec) forLog() any {
	return struct {
		Username    string `json:"username"`
		FullName    string `json:"full_name"`
		Home        string `json:"home"`
		Shell       string `json:"shell"`
		GroupCreate bool   `json:"group_create"`
	}{u.Username, u.FullName, u.Home, u.Shell, u.GroupCreate}
}

// ACLSpec applies an access-control list to a filesystem path.
type ACLSpec struct {
	Path string `json:"path"`
	DACL bool   `json:"dacl"`
	ACEs []ACE  `json:"aces"`
}

// ACE grants one identity a permission set with inheritance behavior.
type ACE struct {
	Who   string   `json:"who"`
	Type  string   `json:"type"`
	Perms ACEPerms `json:"perms"`
	Flags ACEFlags `json:"flags"`
}

type ACEPerms struct {
	Read        bool `json:"READ"`
	Write       bool `json:"WRITE"`
	Execute     bool `json:"EXECUTE"`
	Delete      bool `json:"DELETE"`
	DeleteChild bool `json:"DELETE_CHILD"`
}

type ACEFlags struct {
	FileInherit        bool `json:"FILE_INHERIT"`
	DirectoryInherit   bool `json:"DIRECTORY_INHERIT"`
	NoPropagateInherit bool `json:"NO_PROPAGATE_INHERIT"`
	InheritOnly        bool `json:"INHERIT_ONLY"`
}

// OwnerACL builds the standard list for a freshly provisioned user dataset:
// a single ALLOW entry for the owner that propagates to files and
// directories.
func OwnerACL(path, identity string) ACLSpec {
	return ACLSpec{
		Path: path,
		DACL: true,
		ACEs: []ACE{{
			Who:  identity,
			Type: "ALLOW",
			Perms: ACEPerms{
				Read:        true,
				Write:       true,
				Execute:     true,
				Delete:      true,
				DeleteChild: true,
			},
			Flags: ACEFlags{
				FileInherit:      true,
				DirectoryInherit: true,
			},
		}},
	}
}

// MountPath returns where the appliance mounts a dataset path.
func MountPath(datasetPath string) string {
	return "/mnt/" + datasetPath
}

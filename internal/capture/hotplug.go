package capture

// HotplugEvent reports a camera being attached or detached.
type HotplugEvent struct {
	Action string `json:"action"`
	Device string `json:"device"`
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Inspector → probe.
const (
	RequestSceneTree  = "request_scene_tree"
	InspectObject     = "inspect_object"
	GetStackDump      = "get_stack_dump"
	GetStackFrameVars = "get_stack_frame_vars"
	Next              = "next"
	Step              = "step"
	Continue          = "continue"
	Break             = "break"
	SetSkipBreakpoint = "set_skip_breakpoints"
	Breakpoint        = "breakpoint"
	ReloadScripts     = "reload_scripts"
	StartProfiling    = "start_profiling"
	StopProfiling     = "stop_profiling"
	StartNetProfiling = "start_network_profiling"
	StopNetProfiling  = "stop_network_profiling"
	SaveNode          = "save_node"
	SetObjectProperty = "set_object_property"
	RequestVideoMem   = "request_video_mem"

	LiveSetRoot           = "live_set_root"
	LiveNodePath          = "live_node_path"
	LiveResPath           = "live_res_path"
	LiveNodeProp          = "live_node_prop"
	LiveNodePropRes       = "live_node_prop_res"
	LiveResProp           = "live_res_prop"
	LiveResPropRes        = "live_res_prop_res"
	LiveNodeCall          = "live_node_call"
	LiveResCall           = "live_res_call"
	LiveCreateNode        = "live_create_node"
	LiveInstanceNode      = "live_instance_node"
	LiveRemoveNode        = "live_remove_node"
	LiveRemoveAndKeepNode = "live_remove_and_keep_node"
	LiveRestoreNode       = "live_restore_node"
	LiveDuplicateNode     = "live_duplicate_node"
	LiveReparentNode      = "live_reparent_node"

	OverrideCamera2DSet       = "override_camera_2D:set"
	OverrideCamera2DTransform = "override_camera_2D:transform"
	OverrideCamera3DSet       = "override_camera_3D:set"
	OverrideCamera3DTransform = "override_camera_3D:transform"
)

// Probe → inspector.
const (
	DebugEnter       = "debug_enter"
	DebugExit        = "debug_exit"
	StackDump        = "stack_dump"
	StackFrameVars   = "stack_frame_vars"
	SceneTree        = "message:scene_tree"
	InspectReply     = "message:inspect_object"
	VideoMem         = "message:video_mem"
	ClickCtrl        = "message:click_ctrl"
	Output           = "output"
	Error            = "error"
	Performance      = "performance"
	ProfileSig       = "profile_sig"
	ProfileFrame     = "profile_frame"
	ProfileTotal     = "profile_total"
	NetworkProfile   = "network_profile"
	NetworkBandwidth = "network_bandwidth"
	KillMe           = "kill_me"
)

// Output line types.
const (
	OutputLog   = 0
	OutputError = 1
)

// Profile frame header layout: the fixed leading fields of a
// profile_frame / profile_total argument list.
const (
	ProfileFrameNumber = iota
	ProfileFrameTime
	ProfileProcessTime
	ProfilePhysicsTime
	ProfilePhysicsFrameTime
	ProfileScriptTime
	ProfileCategoryCount
	ProfileFunctionCount

	ProfileHeaderLength
)

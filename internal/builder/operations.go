package builder

// Lifecycle interface operations.
const (
	OpPrecreate  = "cloudify.interfaces.lifecycle.precreate"
	OpCreate     = "cloudify.interfaces.lifecycle.create"
	OpConfigure  = "cloudify.interfaces.lifecycle.configure"
	OpStart      = "cloudify.interfaces.lifecycle.start"
	OpPoststart  = "cloudify.interfaces.lifecycle.poststart"
	OpPrestop    = "cloudify.interfaces.lifecycle.prestop"
	OpStop       = "cloudify.interfaces.lifecycle.stop"
	OpDelete     = "cloudify.interfaces.lifecycle.delete"
	OpPostdelete = "cloudify.interfaces.lifecycle.postdelete"

	OpValidationDelete = "cloudify.interfaces.validation.delete"
	OpMonitoringStart  = "cloudify.interfaces.monitoring.start"
	OpMonitoringStop   = "cloudify.interfaces.monitoring.stop"
)

// Host agent operations.
const (
	OpMonitoringAgentStop      = "cloudify.interfaces.monitoring_agent.stop"
	OpMonitoringAgentUninstall = "cloudify.interfaces.monitoring_agent.uninstall"
	OpAgentStop                = "cloudify.interfaces.cloudify_agent.stop"
	OpAgentStopAMQP            = "cloudify.interfaces.cloudify_agent.stop_amqp"
	OpAgentDelete              = "cloudify.interfaces.cloudify_agent.delete"
	OpWorkerInstallerStop      = "cloudify.interfaces.worker_installer.stop"
	OpWorkerInstallerUninstall = "cloudify.interfaces.worker_installer.uninstall"
)

// Relationship lifecycle operations.
const (
	RelPreconfigure  = "cloudify.interfaces.relationship_lifecycle.preconfigure"
	RelPostconfigure = "cloudify.interfaces.relationship_lifecycle.postconfigure"
	RelEstablish     = "cloudify.interfaces.relationship_lifecycle.establish"
	RelUnlink        = "cloudify.interfaces.relationship_lifecycle.unlink"
)

// Agent install methods.
const (
	InstallMethodNone     = "none"
	InstallMethodRemote   = "remote"
	InstallMethodPlugin   = "plugin"
	InstallMethodScript   = "init_script"
	InstallMethodProvided = "provided"
)

// Event messages.
const (
	MsgStopping          = "Stopping node instance"
	MsgStopped           = "Stopped node instance"
	MsgStoppedNothing    = "Stopped node instance: nothing to do"
	MsgValidating        = "Validating node instance after deletion"
	MsgValidated         = "Validated node instance after deletion"
	MsgValidatingNothing = "Validating node instance after deletion: nothing to do"
	MsgDeleting          = "Deleting node instance"
	MsgDeleted           = "Deleted node instance"
	MsgDeletedNothing    = "Deleted node instance: nothing to do"
	MsgRollbacked        = "Rollbacked node instance"

	MsgStoppingAgent = "Stopping agent"
	MsgDeletingAgent = "Deleting agent"
	MsgAgentDeleted  = "Agent deleted"

	MsgCreating    = "Creating node instance"
	MsgCreated     = "Node instance created"
	MsgConfiguring = "Configuring node instance"
	MsgConfigured  = "Node instance configured"
	MsgStarting    = "Starting node instance"
	MsgStarted     = "Node instance started"
)

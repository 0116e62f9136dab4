// Package hcl_adapter loads deployment snapshots (nodes and node instances)
// from HCL files.
//
// A snapshot file declares node templates and their instances:
//
//	node "web" {
//	  types      = ["cloudify.nodes.Root", "cloudify.nodes.WebServer"]
//	  properties = { port = 8080 }
//
//	  operation "cloudify.interfaces.lifecycle.create" {
//	    implementation = "scripts/create.sh"
//	  }
//
//	  relationship "cloudify.relationships.connected_to" {
//	    target     = "db"
//	    properties = { operation = "configure" }
//	    source_operation "cloudify.interfaces.relationship_lifecycle.establish" {
//	      implementation = "scripts/link.sh"
//	    }
//	  }
//	}
//
//	instance "web_1" {
//	  node  = "web"
//	  state = "starting"
//	}
//
// An instance without relationship blocks connects to every instance of
// each relationship target its node declares. Explicit blocks name the
// relationship type and the target instance instead.
package hcl_adapter

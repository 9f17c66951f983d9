// Package common holds small helpers shared by the service packages,
// currently the host/user audit identity.
package common

//go:build unix && !darwin

package process

const permissionMeansGone = false

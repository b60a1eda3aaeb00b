// Package config loads go-peersec settings with viper.
//
// Settings are read from $HOME/.go-peersec/config.yaml unless another file is
// given. The file is created with default values the first time the default
// location is used. Every key has a default in Defaults, so a missing key
// never produces a zero value.
//
// Keys:
//
//	listen.address            address the secure listener binds
//	listen.accept_rate        handshakes admitted per second
//	listen.accept_burst       handshakes admitted in a burst
//	listen.handshake_timeout  transport deadline applied to each handshake
//	keys.dir                  directory holding the identity keystore
//	keys.name                 keystore file name inside keys.dir
//	auth.allowed_peers        identities allowed to connect; empty allows all
//	time.ntp_enabled          correct packet timestamps with NTP
//	time.ntp_servers          NTP servers queried when enabled
//	time.ntp_timeout          per-server NTP query timeout
//	log.level                 debug, info, warn or error
package config

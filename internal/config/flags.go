// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses configuration flags from args (typically os.Args[1:]).
//
// Flags:
//
//	-a control API address in format [host]:[port]
//	-r remote store address
//	-c/-config json file path with configs
//	-source-driver / -source-dsn migration source store
//	-target-driver / -target-dsn migration target store
//	-queue-driver / -queue-dsn sync queue store
//	-log-level zerolog level name
//	-current-game active game id treated as critical data
//	-sync-interval queue drain interval (e.g. "30s")
//	-lock-timeout stale lock age (e.g. "5m")
//	-heartbeat-interval lock heartbeat period (e.g. "10s")
//	-hidden-mode pause | throttle | none
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("syncd", flag.ContinueOnError)

	var serverAddress NetAddress
	var remoteAddress string
	var jsonConfigPath string
	var source, target, queue Backend
	var logLevel string
	var currentGame string
	var syncInterval, lockTimeout, heartbeat time.Duration
	var hiddenMode string

	fs.Var(&serverAddress, "a", "Control API address host:port")
	fs.StringVar(&remoteAddress, "r", "", "Remote store address")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&source.Driver, "source-driver", "", "Migration source driver")
	fs.StringVar(&source.DSN, "source-dsn", "", "Migration source DSN")
	fs.StringVar(&target.Driver, "target-driver", "", "Migration target driver")
	fs.StringVar(&target.DSN, "target-dsn", "", "Migration target DSN")
	fs.StringVar(&queue.Driver, "queue-driver", "", "Sync queue driver")
	fs.StringVar(&queue.DSN, "queue-dsn", "", "Sync queue DSN")
	fs.StringVar(&logLevel, "log-level", "", "Log level")
	fs.StringVar(&currentGame, "current-game", "", "Currently active game id")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Sync queue drain interval")
	fs.DurationVar(&lockTimeout, "lock-timeout", 0, "Stale lock age")
	fs.DurationVar(&heartbeat, "heartbeat-interval", 0, "Lock heartbeat interval")
	fs.StringVar(&hiddenMode, "hidden-mode", "", "Behaviour while hidden: pause, throttle or none")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{LogLevel: logLevel},
		Storage: Storage{
			Source: source,
			Target: target,
			Queue:  queue,
		},
		Remote:    Remote{HTTPAddress: remoteAddress},
		Server:    Server{HTTPAddress: serverAddress.String()},
		Sync:      Sync{Interval: syncInterval},
		Migration: Migration{CurrentGameID: currentGame, HiddenMode: hiddenMode},
		Lock: Lock{
			Timeout:           lockTimeout,
			HeartbeatInterval: heartbeat,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress, or an empty
// string when unset.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1-65535")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}

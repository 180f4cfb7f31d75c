// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/sunpkg/config.cue (~/Library/Application
// Support/sunpkg/config.cue on macOS, %APPDATA%\sunpkg\config.cue on Windows), falling back
// to config.cue in the working directory. Every key can be overridden from the environment
// with the SUNPKG_ prefix, for example SUNPKG_TOOLS_TIMEOUT=1h or SUNPKG_PUBLISH_DISTROS=el/7,el/8.
//
// This is the only package that reads $HOME and $LOGNAME; everything downstream receives
// resolved values through explicit fields.
package config

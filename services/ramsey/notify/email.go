// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/awnumar/memguard"
)

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	From     string
	To       []string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails the solution report over SMTP with PLAIN auth.
//
// The password is sealed in a memguard Enclave for the lifetime of the
// notifier and only decrypted into locked memory for the duration of a send.
type EmailNotifier struct {
	cfg      EmailConfig
	password *memguard.Enclave
	send     sendFunc
}

// NewEmailNotifier validates cfg and seals password. The password slice is
// wiped by this call.
//
// Inputs:
//
//	cfg - SMTP settings. Host, From and at least one recipient are required.
//	password - SMTP password. Empty disables authentication.
//
// Outputs:
//
//	*EmailNotifier - Ready notifier.
//	error - ErrInvalidConfig for missing fields.
func NewEmailNotifier(cfg EmailConfig, password []byte) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("%w: email needs host, from and at least one recipient", ErrInvalidConfig)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	n := &EmailNotifier{cfg: cfg, send: smtp.SendMail}
	if len(password) > 0 {
		n.password = memguard.NewEnclave(password)
	}
	return n, nil
}

// Notify sends one message to every recipient.
func (e *EmailNotifier) Notify(ctx context.Context, s Solution) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if e.password != nil {
		buf, err := e.password.Open()
		if err != nil {
			return fmt.Errorf("open smtp password: %w", err)
		}
		defer buf.Destroy()
		auth = smtp.PlainAuth("", e.cfg.Username, buf.String(), e.cfg.Host)
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, e.message(s)); err != nil {
		return fmt.Errorf("send solution mail via %s: %w", addr, err)
	}
	return nil
}

// message builds an RFC 5322 plain-text message with CRLF line endings.
func (e *EmailNotifier) message(s Solution) []byte {
	var b strings.Builder
	b.WriteString("From: " + e.cfg.From + "\r\n")
	b.WriteString("To: " + strings.Join(e.cfg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + s.Subject() + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(s.Body(), "\n", "\r\n"))
	return []byte(b.String())
}

/**
 * Tenta Captive Portal
 *
 *    Copyright 2018 Tenta, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * For any questions, please contact developer@tenta.io
 *
 * common_test.go: Tests for common functions
 */

package common

import (
	"bytes"
	"net"
	"testing"
)

func TestAddSuffix(t *testing.T) {

	tt := []struct {
		start    []byte
		suffix   string
		expected []byte
	}{
		{[]byte(""), "", []byte("/")},
		{[]byte("a"), "", []byte("a/")},
		{[]byte(""), "a", []byte("/a")},
		{[]byte("client/1525430000"), "10.0.0.17", []byte("client/1525430000/10.0.0.17")},
		{[]byte("test"), "path", []byte("test/path")},
		{[]byte("test/again"), "path", []byte("test/again/path")},
	}

	for _, test := range tt {
		actual := AddSuffix(test.start, test.suffix)
		if !bytes.Equal(test.expected, actual) {
			t.Errorf("AddSuffix(%#v, %#v) returned %#v, wanted %#v", test.start, test.suffix, actual, test.expected)
		}
	}
}

func TestIsPrivateIp(t *testing.T) {

	tt := []struct {
		ip       string
		expected bool
	}{
		{"10.0.0.1", true},
		{"10.255.255.254", true},
		{"172.16.0.1", true},
		{"172.31.255.1", true},
		{"172.32.0.1", false},
		{"192.168.1.1", true},
		{"192.169.1.1", false},
		{"8.8.8.8", false},
		{"::1", false},
		{"2001:db8::1", false},
	}

	for _, test := range tt {
		actual := IsPrivateIp(net.ParseIP(test.ip))
		if actual != test.expected {
			t.Errorf("IsPrivateIp(%s) returned %v, wanted %v", test.ip, actual, test.expected)
		}
	}
}

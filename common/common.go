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
 * common.go: Common functions
 */

package common

import (
	"net"
)

func AddSuffix(start []byte, suffix string) []byte {
	return append(start, []byte("/"+suffix)...)
}

func IsPrivateIp(a net.IP) bool {
	a = a.To4()
	if a == nil {
		return false
	}
	return a[0] == 10 || // class A private network
		(a[0] == 172 && a[1] >= 16 && a[1] <= 31) || // class B private networks
		(a[0] == 192 && a[1] == 168) // class C private networks
}

// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package format

// registry 為封閉的方言表；第一筆為預設。
var registry = []Dialect{
	{
		Name:      "McStas",
		Extension: "sim",
		Family:    FamilyMcStas,
		Header: "%[1]sFormat: %[4]s file\n" +
			"%[1]sURL: http://www.mcstas.org/\n" +
			"%[1]sEditor: %[6]s\n" +
			"%[1]sCreator: %[2]s simulation (neutrace)\n" +
			"%[1]sDate: Simulation started (%[8]d) %[5]s\n" +
			"%[1]sFile: %[3]s\n",
		Footer:       "%[1]sEndDate: (%[8]d) %[5]s\n",
		BeginSection: "%[1]sbegin %[2]s\n",
		EndSection:   "%[1]send %[2]s\n",
		AssignTag:    "%[1]s%[3]s: %[4]s\n",
		BeginErrors:  "%[1]sErrors [%[2]s/%[4]s]: \n",
		BeginNcount:  "%[1]sEvents [%[2]s/%[4]s]: \n",
	},
	{
		Name:      "Scilab",
		Extension: "sci",
		Family:    FamilyScilab,
		Header: "%[1]sfunction mc_%[7]s = get_%[7]s(p)\n" +
			"%[1]s// %[4]s function issued on %[5]s\n" +
			"%[1]s// simulation %[2]s: %[3]s\n" +
			"%[1]s// import data using exec('%[7]s.sci',-1); s=get_%[7]s();\n" +
			"%[1]smode(-1); //silent execution\n" +
			"%[1]sif argn(2) > 0, p=1; else p=0; end\n" +
			"%[1]smc_%[7]s = struct();\n" +
			"%[1]smc_%[7]s.Format ='%[4]s';\n" +
			"%[1]smc_%[7]s.URL    ='http://www.mcstas.org';\n" +
			"%[1]smc_%[7]s.Editor ='%[6]s';\n" +
			"%[1]smc_%[7]s.Creator='%[2]s simulation';\n" +
			"%[1]smc_%[7]s.Date   =%[8]d; // for getdate\n" +
			"%[1]smc_%[7]s.File   ='%[3]s';\n",
		Footer: "%[1]smc_%[7]s.EndDate=%[8]d; // for getdate\n" +
			"endfunction\n",
		BeginSection: "%[1]s// Section %[2]s [%[3]s] (level %[7]d)\n" +
			"%[1]smc_%[4]s = struct(); mc_%[4]s.class = '%[2]s';\n",
		EndSection:  "%[1]smc_%[6]s.mc_%[4]s = 0; mc_%[6]s.mc_%[4]s = mc_%[4]s;\n",
		AssignTag:   "%[1]smc_%[2]s.%[3]s = '%[4]s';\n",
		BeginData:   "%[1]smc_%[2]s.func='get_%[2]s';\n%[1]smc_%[2]s.data = [ ",
		EndData:     " ]; // end of data\n",
		BeginErrors: "%[1]smc_%[2]s.errors = [ ",
		EndErrors:   " ]; // end of errors\n",
		BeginNcount: "%[1]smc_%[2]s.events = [ ",
		EndNcount:   " ]; // end of events\n",
	},
	{
		Name:      "Matlab",
		Extension: "m",
		Family:    FamilyMatlab,
		Header: "%[1]sfunction mc_%[7]s = get_%[7]s(p)\n" +
			"%[1]s%% %[4]s function issued on %[5]s\n" +
			"%[1]s%% simulation %[2]s: %[3]s\n" +
			"%[1]s%% import data using s=%[7]s;\n" +
			"%[1]sif nargout == 0 | nargin > 0, p=1; else p=0; end\n" +
			"%[1]smc_%[7]s.Format ='%[4]s';\n" +
			"%[1]smc_%[7]s.URL    ='http://www.mcstas.org';\n" +
			"%[1]smc_%[7]s.Editor ='%[6]s';\n" +
			"%[1]smc_%[7]s.Creator='%[2]s simulation';\n" +
			"%[1]smc_%[7]s.Date   =%[8]d; %% for datestr\n" +
			"%[1]smc_%[7]s.File   ='%[3]s';\n",
		Footer: "%[1]smc_%[7]s.EndDate=%[8]d; %% for datestr\n",
		BeginSection: "%[1]s%% Section %[2]s [%[3]s] (level %[7]d)\n" +
			"%[1]smc_%[4]s.class = '%[2]s';\n",
		EndSection:  "%[1]smc_%[6]s.mc_%[4]s = mc_%[4]s;\n",
		AssignTag:   "%[1]smc_%[2]s.%[3]s = '%[4]s';\n",
		BeginData:   "%[1]smc_%[2]s.func='%[2]s';\n%[1]smc_%[2]s.data = [ ",
		EndData:     " ]; %% end of data\n",
		BeginErrors: "%[1]smc_%[2]s.errors = [ ",
		EndErrors:   " ]; %% end of errors\n",
		BeginNcount: "%[1]smc_%[2]s.events = [ ",
		EndNcount:   " ]; %% end of events\n",
	},
	{
		Name:      "IDL",
		Extension: "pro",
		Family:    FamilyIDL,
		Header: "%[1]s; %[4]s function issued on %[5]s\n" +
			"%[1]s; simulation %[2]s: %[3]s\n" +
			"%[1]s; import using s=%[7]s()\n" +
			"%[1]sfunction %[7]s\n" +
			"%[1]sstru = {Format:'%[4]s',URL:'http://www.mcstas.org',Editor:'%[6]s',$\n" +
			"%[1]s  Creator:'%[2]s simulation',$\n" +
			"%[1]s  Date:%[8]d,$\n" +
			"%[1]s  File:'%[3]s'}\n",
		Footer: "%[1]sstru = create_struct(stru,'EndDate',%[8]d)\n" +
			"%[1]sreturn, stru\n",
		BeginSection: "%[1]s; Section %[2]s [%[3]s] (level %[7]d)\n" +
			"%[1]s%[4]s = {class:'%[2]s'}\n",
		EndSection:  "%[1]s%[6]s = create_struct(%[6]s, '%[4]s', %[4]s)\n",
		AssignTag:   "%[1]s%[2]s = create_struct(%[2]s, '%[3]s', '%[4]s')\n",
		BeginData:   "%[1]s%[2]s = create_struct(%[2]s, 'func', '%[2]s')\n%[1]sdata = [ ",
		EndData:     " ]\n%[1]s%[2]s = create_struct(%[2]s, 'data', data)\n",
		BeginErrors: "%[1]serrors = [ ",
		EndErrors:   " ]\n%[1]s%[2]s = create_struct(%[2]s, 'errors', errors)\n",
		BeginNcount: "%[1]sevents = [ ",
		EndNcount:   " ]\n%[1]s%[2]s = create_struct(%[2]s, 'events', events)\n",
	},
	{
		Name:      "Python",
		Extension: "py",
		Family:    FamilyPython,
		Header: "%[1]s# %[4]s file issued on %[5]s\n" +
			"%[1]s# simulation %[2]s: %[3]s\n" +
			"%[1]s# import using: from %[7]s import *\n" +
			"%[1]smc_%[7]s = dict()\n" +
			"%[1]smc_%[7]s['Format'] = '%[4]s'\n" +
			"%[1]smc_%[7]s['URL'] = 'http://www.mcstas.org'\n" +
			"%[1]smc_%[7]s['Editor'] = '%[6]s'\n" +
			"%[1]smc_%[7]s['Creator'] = '%[2]s simulation'\n" +
			"%[1]smc_%[7]s['Date'] = %[8]d\n" +
			"%[1]smc_%[7]s['File'] = '%[3]s'\n",
		Footer: "%[1]smc_%[7]s['EndDate'] = %[8]d\n",
		BeginSection: "%[1]s# Section %[2]s [%[3]s] (level %[7]d)\n" +
			"%[1]smc_%[4]s = dict(); mc_%[4]s['class'] = '%[2]s'\n",
		EndSection:  "%[1]smc_%[6]s['mc_%[4]s'] = mc_%[4]s\n",
		AssignTag:   "%[1]smc_%[2]s['%[3]s'] = '%[4]s'\n",
		BeginData:   "%[1]smc_%[2]s['data'] = [ ",
		EndData:     " ]\n",
		BeginErrors: "%[1]smc_%[2]s['errors'] = [ ",
		EndErrors:   " ]\n",
		BeginNcount: "%[1]smc_%[2]s['events'] = [ ",
		EndNcount:   " ]\n",
	},
	{
		Name:      "XML",
		Extension: "xml",
		Family:    FamilyXML,
		Header: "%[1]s<?xml version=\"1.0\" ?>\n" +
			"%[1]s<!-- Format:  %[4]s file -->\n" +
			"%[1]s<!-- URL:     http://www.mcstas.org/ -->\n" +
			"%[1]s<!-- Editor:  %[6]s -->\n" +
			"%[1]s<!-- Creator: %[2]s simulation -->\n" +
			"%[1]s<!-- Date:    Simulation started (%[8]d) %[5]s -->\n" +
			"%[1]s<!-- File:    %[3]s -->\n" +
			"%[1]s<%[7]s>\n",
		Footer: "%[1]s<!-- EndDate: (%[8]d) %[5]s -->\n" +
			"</%[7]s>\n",
		BeginSection: "%[1]s<%[2]s name=\"%[4]s\" parent=\"%[6]s\" level=\"%[7]d\">\n",
		EndSection:   "%[1]s</%[2]s>\n",
		AssignTag:    "%[1]s<%[3]s>%[4]s</%[3]s>\n",
		BeginData: "%[1]s<data dims=\"%[14]d %[15]d %[16]d\" " +
			"limits=\"%.6[17]g %.6[18]g %.6[19]g %.6[20]g %.6[21]g %.6[22]g\" " +
			"xlabel=\"%[5]s\" ylabel=\"%[7]s\" zlabel=\"%[9]s\">\n",
		EndData:     "%[1]s</data>\n",
		BeginErrors: "%[1]s<errors>\n",
		EndErrors:   "%[1]s</errors>\n",
		BeginNcount: "%[1]s<events>\n",
		EndNcount:   "%[1]s</events>\n",
	},
}

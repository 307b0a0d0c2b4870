/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog holds the built-in widget templates. Each template is a
// complete markup/style/script triple ready to instantiate through the store;
// scripts talk to the host only via window.WIDGET_DATA and sendWidgetState.
package catalog

import "kastom/internal/domain"

// Keys in menu order.
var order = []string{
	KeyTable,
	KeyNotebook,
	KeyCalculator,
	KeyClock,
	KeyKanban,
	KeyTally,
}

const (
	KeyTable      = "TABLE"
	KeyNotebook   = "NOTEBOOK"
	KeyCalculator = "CALCULATOR"
	KeyClock      = "CLOCK"
	KeyKanban     = "KANBAN"
	KeyTally      = "TALLY"
)

// Keys returns the template keys in menu order.
func Keys() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// Get returns the template for key.
func Get(key string) (domain.Template, bool) {
	t, ok := premade[key]
	return t, ok
}

// All returns the templates in menu order.
func All() []domain.Template {
	out := make([]domain.Template, 0, len(order))
	for _, k := range order {
		out = append(out, premade[k])
	}
	return out
}

var premade = map[string]domain.Template{
	KeyTable: {
		Title: "Smart Spreadsheet",
		Markup: `
      <div class="toolbar">
        <button onclick="addRow()">+ Row</button>
        <button onclick="addCol()">+ Col</button>
        <button onclick="removeRow()" class="danger">- Row</button>
        <button onclick="removeCol()" class="danger">- Col</button>
      </div>
      <div class="table-container">
        <table id="mainTable">
          <thead></thead>
          <tbody></tbody>
        </table>
      </div>
    `,
		Style: `
      .toolbar {
        display: flex;
        gap: 4px;
        padding: 8px;
        background: rgba(255,255,255,0.05);
        border-bottom: 1px solid rgba(255,255,255,0.1);
        flex-wrap: wrap;
      }
      button {
        background: rgba(255,255,255,0.1);
        border: none;
        color: white;
        padding: 4px 8px;
        border-radius: 4px;
        cursor: pointer;
        font-size: 0.75em;
        flex: 1;
      }
      button:hover { background: rgba(255,255,255,0.2); }
      button.danger { color: #f87171; background: rgba(248, 113, 113, 0.1); }
      button.danger:hover { background: rgba(248, 113, 113, 0.2); }

      .table-container {
        flex: 1;
        overflow: auto;
        padding: 10px;
      }
      table {
        width: 100%;
        border-collapse: collapse;
        min-width: 300px;
      }
      th, td {
        border: 1px solid rgba(255,255,255,0.2);
        padding: 8px;
        text-align: left;
        min-width: 60px;
      }
      th {
        background: rgba(255,255,255,0.1);
        font-weight: bold;
      }
      td:focus, th:focus {
        outline: 2px solid #8b5cf6;
        background: rgba(139, 92, 246, 0.1);
      }
    `,
		Script: `
      let state = window.WIDGET_DATA || {
        headers: ['Item', 'Cost', 'Notes'],
        rows: [
          ['Apple', '$1.00', 'Fresh'],
          ['Banana', '$0.50', 'Sweet']
        ]
      };

      function save() {
        const hCells = Array.from(document.querySelectorAll('#mainTable thead th'));
        state.headers = hCells.map(c => c.innerText);

        const trs = Array.from(document.querySelectorAll('#mainTable tbody tr'));
        state.rows = trs.map(tr => {
          return Array.from(tr.querySelectorAll('td')).map(td => td.innerText);
        });

        if(window.sendWidgetState) {
          window.sendWidgetState(state);
        }
      }

      function render() {
        const thead = document.querySelector('#mainTable thead');
        const tbody = document.querySelector('#mainTable tbody');

        let hHtml = '<tr>';
        state.headers.forEach(h => {
          hHtml += '<th contenteditable="true" onblur="save()">' + h + '</th>';
        });
        hHtml += '</tr>';
        thead.innerHTML = hHtml;

        let bHtml = '';
        state.rows.forEach(row => {
          bHtml += '<tr>';
          row.forEach(cell => {
            bHtml += '<td contenteditable="true" onblur="save()">' + cell + '</td>';
          });
          bHtml += '</tr>';
        });
        tbody.innerHTML = bHtml;
      }

      function addRow() {
        const emptyRow = new Array(state.headers.length).fill('');
        state.rows.push(emptyRow);
        render();
        save();
      }

      function addCol() {
        state.headers.push('New Col');
        state.rows.forEach(row => row.push(''));
        render();
        save();
      }

      function removeRow() {
        if(state.rows.length > 0) {
          state.rows.pop();
          render();
          save();
        }
      }

      function removeCol() {
        if(state.headers.length > 0) {
          state.headers.pop();
          state.rows.forEach(row => row.pop());
          render();
          save();
        }
      }

      render();
    `,
	},
	KeyNotebook: {
		Title: "Writer's Notebook",
		Markup: `
      <div class="notebook-wrapper">
        <div class="paper">
          <div class="lines">
            <textarea id="noteArea" placeholder="Start writing your thoughts..."></textarea>
          </div>
        </div>
        <div class="status-bar">
          <span id="wordCount">0 words</span>
          <span id="status">Saved</span>
        </div>
      </div>
    `,
		Style: `
      .notebook-wrapper {
        display: flex;
        flex-direction: column;
        height: 100%;
        background: #fefce8;
        color: #333;
      }
      .paper {
        flex: 1;
        position: relative;
        overflow: hidden;
        padding: 0;
      }
      .lines {
        height: 100%;
        width: 100%;
        background-image: linear-gradient(#e5e7eb 1px, transparent 1px);
        background-size: 100% 32px;
      }
      textarea {
        width: 100%;
        height: 100%;
        background: transparent;
        border: none;
        resize: none;
        outline: none;
        font-family: 'Courier New', Courier, monospace;
        font-size: 18px;
        line-height: 32px;
        padding: 0 20px;
        padding-top: 1px;
        color: #1f2937;
      }
      .status-bar {
        padding: 5px 10px;
        background: rgba(0,0,0,0.05);
        font-size: 10px;
        display: flex;
        justify-content: space-between;
        color: #666;
        border-top: 1px solid rgba(0,0,0,0.1);
      }
    `,
		Script: `
      const area = document.getElementById('noteArea');
      const wc = document.getElementById('wordCount');
      const status = document.getElementById('status');

      if(window.WIDGET_DATA && window.WIDGET_DATA.text) {
        area.value = window.WIDGET_DATA.text;
      }

      function updateStats() {
        const text = area.value;
        const words = text.trim().split(/\s+/).filter(w => w.length > 0).length;
        wc.textContent = words + ' words';
      }

      let timeout;
      area.addEventListener('input', () => {
        updateStats();
        status.textContent = "Unsaved...";

        clearTimeout(timeout);
        timeout = setTimeout(() => {
          if(window.sendWidgetState) {
            window.sendWidgetState({ text: area.value });
            status.textContent = "Saved";
          }
        }, 1000);
      });

      updateStats();
    `,
	},
	KeyCalculator: {
		Title: "Retro Calculator",
		Markup: `
      <div class="calc-container">
        <div class="display">
          <div class="prev-operand" id="prev"></div>
          <div class="curr-operand" id="curr">0</div>
        </div>
        <div class="buttons">
          <button class="span-2 op" onclick="clearCalc()">AC</button>
          <button class="op" onclick="del()">DEL</button>
          <button class="op" onclick="chooseOp('÷')">÷</button>
          <button onclick="append('7')">7</button>
          <button onclick="append('8')">8</button>
          <button onclick="append('9')">9</button>
          <button class="op" onclick="chooseOp('*')">×</button>
          <button onclick="append('4')">4</button>
          <button onclick="append('5')">5</button>
          <button onclick="append('6')">6</button>
          <button class="op" onclick="chooseOp('-')">-</button>
          <button onclick="append('1')">1</button>
          <button onclick="append('2')">2</button>
          <button onclick="append('3')">3</button>
          <button class="op" onclick="chooseOp('+')">+</button>
          <button onclick="append('.')">.</button>
          <button onclick="append('0')">0</button>
          <button class="span-2 equals" onclick="compute()">=</button>
        </div>
      </div>
    `,
		Style: `
      .calc-container {
        display: flex;
        flex-direction: column;
        height: 100%;
        padding: 10px;
      }
      .display {
        background: rgba(0,0,0,0.3);
        border-radius: 8px;
        padding: 15px;
        display: flex;
        flex-direction: column;
        align-items: flex-end;
        justify-content: space-around;
        margin-bottom: 10px;
        flex: 1;
      }
      .prev-operand {
        color: rgba(255,255,255,0.6);
        font-size: 0.9em;
        min-height: 1.2em;
      }
      .curr-operand {
        color: white;
        font-size: 2em;
        font-weight: bold;
        word-wrap: break-word;
        word-break: break-all;
      }
      .buttons {
        display: grid;
        grid-template-columns: repeat(4, 1fr);
        gap: 8px;
        flex: 3;
      }
      button {
        border: none;
        outline: none;
        background: rgba(255,255,255,0.1);
        color: white;
        font-size: 1.2em;
        border-radius: 8px;
        cursor: pointer;
        transition: background 0.2s;
      }
      button:hover { background: rgba(255,255,255,0.2); }
      button:active { background: rgba(255,255,255,0.05); }
      .span-2 { grid-column: span 2; }
      .op { color: #818cf8; background: rgba(99, 102, 241, 0.1); }
      .equals { background: #818cf8; color: white; }
      .equals:hover { background: #6366f1; }
    `,
		Script: `
      let curr = '0';
      let prev = '';
      let operation = undefined;

      const currEl = document.getElementById('curr');
      const prevEl = document.getElementById('prev');

      function updateDisplay() {
        currEl.innerText = curr;
        if(operation != null) {
          prevEl.innerText = prev + ' ' + operation;
        } else {
          prevEl.innerText = '';
        }
      }

      function append(num) {
        if (num === '.' && curr.includes('.')) return;
        if (curr === '0' && num !== '.') curr = num;
        else curr = curr.toString() + num.toString();
        updateDisplay();
      }

      function chooseOp(op) {
        if (curr === '') return;
        if (prev !== '') compute();
        operation = op;
        prev = curr;
        curr = '';
        updateDisplay();
      }

      function compute() {
        let computation;
        const p = parseFloat(prev);
        const c = parseFloat(curr);
        if (isNaN(p) || isNaN(c)) return;
        switch (operation) {
          case '+': computation = p + c; break;
          case '-': computation = p - c; break;
          case '*': computation = p * c; break;
          case '÷': computation = p / c; break;
          default: return;
        }
        curr = computation;
        operation = undefined;
        prev = '';
        updateDisplay();
      }

      function clearCalc() {
        curr = '0';
        prev = '';
        operation = undefined;
        updateDisplay();
      }

      function del() {
        curr = curr.toString().slice(0, -1);
        if(curr === '') curr = '0';
        updateDisplay();
      }
    `,
	},
	KeyClock: {
		Title: "Time Suite",
		Markup: `
      <div class="wrapper">
        <div class="tabs">
          <div class="tab active" onclick="switchTab('clock')">Clock</div>
          <div class="tab" onclick="switchTab('timer')">Timer</div>
          <div class="tab" onclick="switchTab('stopwatch')">Stopwatch</div>
        </div>

        <div id="clock-view" class="view active">
          <div class="time-display" id="main-clock">00:00:00</div>
          <div class="date-display" id="main-date">Loading...</div>
        </div>

        <div id="timer-view" class="view">
          <div class="time-display" id="timer-display">00:00</div>

          <div class="timer-input-group">
             <input type="number" id="timer-input" placeholder="Min" min="1" />
             <button onclick="setCustomTime()" class="small-btn">Set</button>
          </div>

          <div class="controls">
             <button onclick="addTime(1)">+1m</button>
             <button onclick="addTime(5)">+5m</button>
             <button onclick="startTimer()" class="primary">Start</button>
             <button onclick="resetTimer()" class="danger">Reset</button>
          </div>
        </div>

        <div id="stopwatch-view" class="view">
          <div class="time-display" id="sw-display">00:00.00</div>
           <div class="controls">
             <button onclick="toggleSw()" id="sw-btn" class="primary">Start</button>
             <button onclick="resetSw()" class="danger">Reset</button>
          </div>
        </div>
      </div>
    `,
		Style: `
      .wrapper { display: flex; flex-direction: column; height: 100%; text-align: center; }
      .tabs { display: flex; border-bottom: 1px solid rgba(255,255,255,0.1); }
      .tab {
        flex: 1;
        padding: 10px;
        cursor: pointer;
        font-size: 0.8em;
        opacity: 0.6;
        transition: 0.2s;
      }
      .tab:hover { background: rgba(255,255,255,0.05); }
      .tab.active { opacity: 1; border-bottom: 2px solid #8b5cf6; font-weight: bold; }

      .view { display: none; flex: 1; flex-direction: column; justify-content: center; align-items: center; gap: 15px; }
      .view.active { display: flex; }

      .time-display { font-size: 3em; font-weight: 200; font-feature-settings: "tnum"; }
      .date-display { font-size: 1em; opacity: 0.7; }

      .timer-input-group {
        display: flex;
        gap: 5px;
        align-items: center;
      }
      input {
        background: rgba(0,0,0,0.3);
        border: 1px solid rgba(255,255,255,0.2);
        color: white;
        padding: 4px 8px;
        border-radius: 4px;
        width: 60px;
        text-align: center;
      }

      .controls { display: flex; gap: 10px; justify-content: center; flex-wrap: wrap; }
      button {
        padding: 8px 16px;
        border-radius: 20px;
        border: 1px solid rgba(255,255,255,0.2);
        background: transparent;
        color: white;
        cursor: pointer;
      }
      button.small-btn { padding: 4px 10px; font-size: 0.8em; border-radius: 4px; }
      button.primary { background: #8b5cf6; border-color: #8b5cf6; }
      button.danger { border-color: #ef4444; color: #ef4444; }
    `,
		Script: `
      setInterval(() => {
        const now = new Date();
        document.getElementById('main-clock').innerText = now.toLocaleTimeString();
        document.getElementById('main-date').innerText = now.toLocaleDateString(undefined, { weekday: 'long', year: 'numeric', month: 'long', day: 'numeric' });
      }, 1000);

      function switchTab(tabName) {
        document.querySelectorAll('.view').forEach(el => el.classList.remove('active'));
        document.querySelectorAll('.tab').forEach(el => el.classList.remove('active'));
        document.getElementById(tabName+'-view').classList.add('active');

        const tabs = ['clock', 'timer', 'stopwatch'];
        document.querySelectorAll('.tab')[tabs.indexOf(tabName)].classList.add('active');
      }

      let timerInterval;
      let timerSeconds = 0;

      function updateTimerDisplay() {
        const m = Math.floor(timerSeconds / 60).toString().padStart(2, '0');
        const s = (timerSeconds % 60).toString().padStart(2, '0');
        document.getElementById('timer-display').innerText = m + ':' + s;
      }

      function addTime(min) {
        timerSeconds += min * 60;
        updateTimerDisplay();
      }

      function setCustomTime() {
        const val = parseInt(document.getElementById('timer-input').value);
        if(!isNaN(val) && val > 0) {
          timerSeconds = val * 60;
          updateTimerDisplay();
        }
      }

      function startTimer() {
        if(timerInterval) clearInterval(timerInterval);
        if(timerSeconds <= 0) return;
        timerInterval = setInterval(() => {
          if(timerSeconds > 0) {
            timerSeconds--;
            updateTimerDisplay();
          } else {
            clearInterval(timerInterval);
            alert("Timer Done!");
          }
        }, 1000);
      }

      function resetTimer() {
        clearInterval(timerInterval);
        timerSeconds = 0;
        updateTimerDisplay();
      }

      let swInterval;
      let swTime = 0;
      let swRunning = false;

      function toggleSw() {
        const btn = document.getElementById('sw-btn');
        if(swRunning) {
          clearInterval(swInterval);
          swRunning = false;
          btn.innerText = "Start";
        } else {
          const startTime = Date.now() - swTime;
          swInterval = setInterval(() => {
            swTime = Date.now() - startTime;
            const ms = Math.floor((swTime % 1000) / 10).toString().padStart(2, '0');
            const s = Math.floor((swTime / 1000) % 60).toString().padStart(2, '0');
            const m = Math.floor(swTime / 60000).toString().padStart(2, '0');
            document.getElementById('sw-display').innerText = m + ':' + s + '.' + ms;
          }, 10);
          swRunning = true;
          btn.innerText = "Stop";
        }
      }

      function resetSw() {
        clearInterval(swInterval);
        swRunning = false;
        swTime = 0;
        document.getElementById('sw-display').innerText = "00:00.00";
        document.getElementById('sw-btn').innerText = "Start";
      }
    `,
	},
	KeyKanban: {
		Title: "Kanban Board",
		Markup: `
      <div class="kanban-container">
        <div class="column" id="todo">
          <div class="col-header status-todo">To Do</div>
          <div class="card-list" id="list-todo"></div>
          <div class="add-card">
            <input type="text" placeholder="New Task..." onkeydown="if(event.key==='Enter') addTask('todo', this.value, this)">
          </div>
        </div>
        <div class="column" id="doing">
          <div class="col-header status-doing">Doing</div>
          <div class="card-list" id="list-doing"></div>
          <div class="add-card">
            <input type="text" placeholder="New Task..." onkeydown="if(event.key==='Enter') addTask('doing', this.value, this)">
          </div>
        </div>
        <div class="column" id="done">
          <div class="col-header status-done">Done</div>
          <div class="card-list" id="list-done"></div>
           <div class="add-card">
            <input type="text" placeholder="New Task..." onkeydown="if(event.key==='Enter') addTask('done', this.value, this)">
          </div>
        </div>
      </div>
    `,
		Style: `
      .kanban-container {
        display: flex;
        height: 100%;
        gap: 10px;
        padding: 10px;
        overflow-x: auto;
      }
      .column {
        flex: 1;
        min-width: 140px;
        background: rgba(0,0,0,0.2);
        border-radius: 8px;
        display: flex;
        flex-direction: column;
        overflow: hidden;
      }
      .col-header {
        padding: 8px;
        font-weight: bold;
        text-align: center;
        text-transform: uppercase;
        font-size: 0.75em;
        letter-spacing: 1px;
      }
      .status-todo { border-bottom: 2px solid #f472b6; color: #f472b6; }
      .status-doing { border-bottom: 2px solid #fbbf24; color: #fbbf24; }
      .status-done { border-bottom: 2px solid #34d399; color: #34d399; }

      .card-list {
        flex: 1;
        overflow-y: auto;
        padding: 8px;
      }
      .card {
        background: rgba(255,255,255,0.08);
        padding: 8px;
        border-radius: 4px;
        margin-bottom: 6px;
        font-size: 0.9em;
        display: flex;
        flex-direction: column;
        gap: 4px;
      }
      .card:hover { background: rgba(255,255,255,0.12); }

      .card-actions {
        display: flex;
        justify-content: flex-end;
        gap: 4px;
        opacity: 0.5;
      }
      .card:hover .card-actions { opacity: 1; }

      .action-btn {
        background: rgba(255,255,255,0.1);
        border: none;
        color: white;
        cursor: pointer;
        font-size: 0.7em;
        padding: 2px 6px;
        border-radius: 3px;
      }
      .action-btn:hover { background: rgba(255,255,255,0.2); }
      .action-btn.del:hover { background: #ef4444; color: white; }

      .add-card {
        padding: 8px;
        border-top: 1px solid rgba(255,255,255,0.05);
      }
      input {
        width: 100%;
        background: transparent;
        border: 1px solid rgba(255,255,255,0.2);
        color: white;
        padding: 4px 8px;
        border-radius: 4px;
        font-size: 0.8em;
      }
      input:focus { outline: none; border-color: #8b5cf6; }
    `,
		Script: `
      let tasks = window.WIDGET_DATA || [
        { id: '1', text: 'Welcome to Kanban', status: 'todo' }
      ];

      function save() {
        if(window.sendWidgetState) {
          window.sendWidgetState(tasks);
        }
      }

      function render() {
        document.getElementById('list-todo').innerHTML = '';
        document.getElementById('list-doing').innerHTML = '';
        document.getElementById('list-done').innerHTML = '';

        tasks.forEach(task => {
          const el = document.createElement('div');
          el.className = 'card';

          let moves = '';
          if(task.status === 'todo') moves = '<button class="action-btn" onclick="moveTask(\''+task.id+'\', \'doing\')">→</button>';
          if(task.status === 'doing') moves = '<button class="action-btn" onclick="moveTask(\''+task.id+'\', \'todo\')">←</button> <button class="action-btn" onclick="moveTask(\''+task.id+'\', \'done\')">→</button>';
          if(task.status === 'done') moves = '<button class="action-btn" onclick="moveTask(\''+task.id+'\', \'doing\')">←</button>';

          el.innerHTML = '<span>' + task.text + '</span><div class="card-actions">' + moves + '<button class="action-btn del" onclick="delTask(\''+task.id+'\')">×</button></div>';
          document.getElementById('list-' + task.status).appendChild(el);
        });
      }

      function addTask(status, text, input) {
        if(!text.trim()) return;
        const id = Date.now().toString();
        tasks.push({ id, text, status });
        input.value = '';
        render();
        save();
      }

      function moveTask(id, newStatus) {
        const task = tasks.find(t => t.id === id);
        if(task) {
          task.status = newStatus;
          render();
          save();
        }
      }

      function delTask(id) {
        tasks = tasks.filter(t => t.id !== id);
        render();
        save();
      }

      render();
    `,
	},
	KeyTally: {
		Title: "Counter",
		Markup: `
      <div class="counter-wrapper">
        <div class="count" id="count">0</div>
        <div class="btn-row">
          <button class="minus" onclick="mod(-1)">-</button>
          <button class="plus" onclick="mod(1)">+</button>
        </div>
        <button class="reset" onclick="reset()">Reset</button>
      </div>
    `,
		Style: `
      .counter-wrapper {
        display: flex;
        flex-direction: column;
        align-items: center;
        justify-content: center;
        height: 100%;
        gap: 20px;
      }
      .count {
        font-size: 6em;
        font-weight: bold;
        text-shadow: 0 0 20px rgba(255,255,255,0.1);
      }
      .btn-row { display: flex; gap: 20px; }
      button {
        width: 60px;
        height: 60px;
        border-radius: 50%;
        border: none;
        font-size: 2em;
        cursor: pointer;
        color: white;
        transition: transform 0.1s;
      }
      button:active { transform: scale(0.95); }
      .plus { background: #34d399; box-shadow: 0 0 15px rgba(52, 211, 153, 0.4); }
      .minus { background: #f87171; box-shadow: 0 0 15px rgba(248, 113, 113, 0.4); }

      .reset {
        width: auto;
        height: auto;
        padding: 8px 16px;
        border-radius: 20px;
        font-size: 0.9em;
        background: rgba(255,255,255,0.1);
      }
    `,
		Script: `
      let count = window.WIDGET_DATA || 0;
      const el = document.getElementById('count');

      function render() {
        el.innerText = count;
        if(window.sendWidgetState) window.sendWidgetState(count);
      }

      function mod(amt) {
        count += amt;
        render();
      }

      function reset() {
        count = 0;
        render();
      }

      render();
    `,
	},
}
